package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"matchmap/internal/database"
	"matchmap/internal/domain/event"
	"matchmap/internal/domain/request"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type PostgresRequestRepository struct {
	db database.DB
}

func NewPostgresRequestRepository(db database.DB) *PostgresRequestRepository {
	return &PostgresRequestRepository{db: db}
}

var _ request.Repository = (*PostgresRequestRepository)(nil)

func requestColumns(alias string) string {
	cols := []string{
		"id", "tenant_id", "created_by_user_id", "job_title", "department", "seniority",
		"status", "payment_status", "external_execution_id", "created_at", "updated_at", "completed_at",
	}
	if alias == "" {
		return strings.Join(cols, ", ")
	}
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func scanRequest(row database.Row, extra ...any) (request.Request, error) {
	var (
		r             request.Request
		status        string
		paymentStatus string
	)
	dest := []any{
		&r.ID, &r.TenantID, &r.CreatedByUserID, &r.JobTitle, &r.Department, &r.Seniority,
		&status, &paymentStatus, &r.ExternalExecutionID, &r.CreatedAt, &r.UpdatedAt, &r.CompletedAt,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return request.Request{}, err
	}
	r.Status = request.Status(status)
	r.PaymentStatus = request.PaymentStatus(paymentStatus)
	return r, nil
}

func fileTable(kind request.FileKind) (string, error) {
	switch kind {
	case request.FileKindJob:
		return "job_files", nil
	case request.FileKindApplicant:
		return "applicant_files", nil
	}
	return "", fmt.Errorf("unknown file kind %q", kind)
}

func (r *PostgresRequestRepository) Create(ctx context.Context, req request.Request) error {
	if req.JobFile == nil {
		return fmt.Errorf("create request %s: job file missing", req.ID)
	}
	return database.WithTx(ctx, r.db, func(tx database.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO requests (
				id, tenant_id, created_by_user_id, job_title, department, seniority,
				status, payment_status, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			req.ID,
			req.TenantID,
			req.CreatedByUserID,
			req.JobTitle,
			req.Department,
			req.Seniority,
			string(req.Status),
			string(req.PaymentStatus),
			req.CreatedAt,
			req.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert request: %w", err)
		}

		files := append([]request.File{*req.JobFile}, req.ApplicantFiles...)
		for _, f := range files {
			table, err := fileTable(f.Kind)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx,
				`INSERT INTO `+table+` (id, request_id, filename, mime_type, storage_path, file_size, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				f.ID,
				req.ID,
				f.Filename,
				f.MimeType,
				f.StoragePath,
				f.FileSize,
				f.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("insert %s: %w", table, err)
			}
		}
		return nil
	})
}

func (r *PostgresRequestRepository) GetForTenant(ctx context.Context, tenantID, id uuid.UUID) (request.Request, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+requestColumns("")+` FROM requests WHERE id = $1 AND tenant_id = $2`,
		id, tenantID,
	)
	return r.getWithFiles(ctx, row)
}

func (r *PostgresRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (request.Request, error) {
	row := r.db.QueryRow(ctx, `SELECT `+requestColumns("")+` FROM requests WHERE id = $1`, id)
	return r.getWithFiles(ctx, row)
}

func (r *PostgresRequestRepository) getWithFiles(ctx context.Context, row database.Row) (request.Request, error) {
	req, err := scanRequest(row)
	if err != nil {
		if database.IsNoRows(err) {
			return request.Request{}, request.ErrNotFound
		}
		return request.Request{}, err
	}

	jobs, err := r.listFiles(ctx, request.FileKindJob, req.ID)
	if err != nil {
		return request.Request{}, err
	}
	if len(jobs) > 0 {
		req.JobFile = &jobs[0]
	}
	req.ApplicantFiles, err = r.listFiles(ctx, request.FileKindApplicant, req.ID)
	if err != nil {
		return request.Request{}, err
	}
	return req, nil
}

func (r *PostgresRequestRepository) listFiles(ctx context.Context, kind request.FileKind, requestID uuid.UUID) ([]request.File, error) {
	table, err := fileTable(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, request_id, filename, mime_type, storage_path, file_size, created_at
		 FROM `+table+`
		 WHERE request_id = $1
		 ORDER BY created_at ASC, id ASC`,
		requestID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]request.File, 0)
	for rows.Next() {
		f := request.File{Kind: kind}
		if err := rows.Scan(&f.ID, &f.RequestID, &f.Filename, &f.MimeType, &f.StoragePath, &f.FileSize, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRequestRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]request.Summary, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+requestColumns("r")+`,
			(SELECT COUNT(*) FROM applicant_files a WHERE a.request_id = r.id),
			(SELECT COUNT(*) FROM result_candidates c WHERE c.request_id = r.id)
		 FROM requests r
		 WHERE r.tenant_id = $1
		 ORDER BY r.created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]request.Summary, 0)
	for rows.Next() {
		var s request.Summary
		req, err := scanRequest(rows, &s.ApplicantCount, &s.ResultCount)
		if err != nil {
			return nil, err
		}
		s.Request = req
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRequestRepository) ListResults(ctx context.Context, requestID uuid.UUID) ([]request.ResultCandidate, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, request_id, rank, candidate_name, email, score, skills::text, missing_skills::text, summary, created_at
		 FROM result_candidates
		 WHERE request_id = $1
		 ORDER BY rank ASC`,
		requestID,
	)
	if err != nil {
		return nil, err
	}

	out := make([]request.ResultCandidate, 0)
	index := map[uuid.UUID]int{}
	for rows.Next() {
		var (
			c       request.ResultCandidate
			skills  pq.StringArray
			missing pq.StringArray
		)
		if err := rows.Scan(&c.ID, &c.RequestID, &c.Rank, &c.CandidateName, &c.Email, &c.Score, &skills, &missing, &c.Summary, &c.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		c.Skills = []string(skills)
		c.MissingSkills = []string(missing)
		c.Highlights = []request.Highlight{}
		index[c.ID] = len(out)
		out = append(out, c)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	hrows, err := r.db.Query(ctx,
		`SELECT h.result_candidate_id, h.skill, h.evidence
		 FROM result_highlights h
		 JOIN result_candidates c ON c.id = h.result_candidate_id
		 WHERE c.request_id = $1
		 ORDER BY h.result_candidate_id, h.position ASC`,
		requestID,
	)
	if err != nil {
		return nil, err
	}
	defer hrows.Close()

	for hrows.Next() {
		var (
			cid uuid.UUID
			h   request.Highlight
		)
		if err := hrows.Scan(&cid, &h.Skill, &h.Evidence); err != nil {
			return nil, err
		}
		if i, ok := index[cid]; ok {
			out[i].Highlights = append(out[i].Highlights, h)
		}
	}
	if err := hrows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRequestRepository) TransitionStatus(ctx context.Context, tenantID, id uuid.UUID, from []request.Status, to request.Status) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	n, err := r.db.Exec(ctx,
		`UPDATE requests SET status = $1, updated_at = now()
		 WHERE id = $2 AND tenant_id = $3 AND status = ANY($4)`,
		string(to),
		id,
		tenantID,
		pq.Array(request.Strings(from)),
	)
	if err != nil {
		return false, fmt.Errorf("transition request %s to %s: %w", id, to, err)
	}
	return n == 1, nil
}

func (r *PostgresRequestRepository) MarkRunning(ctx context.Context, id uuid.UUID, executionID string) (request.Status, error) {
	var status string
	err := r.db.QueryRow(ctx,
		`UPDATE requests
		 SET external_execution_id = $2,
			status = CASE WHEN status = 'QUEUED' THEN 'RUNNING' ELSE status END,
			updated_at = now()
		 WHERE id = $1
		 RETURNING status`,
		id,
		executionID,
	).Scan(&status)
	if err != nil {
		if database.IsNoRows(err) {
			return "", request.ErrNotFound
		}
		return "", fmt.Errorf("mark request %s running: %w", id, err)
	}
	return request.Status(status), nil
}

func (r *PostgresRequestRepository) ApplyOutcome(ctx context.Context, o request.Outcome) error {
	return database.WithTx(ctx, r.db, func(tx database.Tx) error {
		n, err := tx.Exec(ctx,
			`UPDATE requests SET status = $2, completed_at = $3, updated_at = now() WHERE id = $1`,
			o.RequestID,
			string(o.Status),
			o.CompletedAt,
		)
		if err != nil {
			return fmt.Errorf("update request status: %w", err)
		}
		if n == 0 {
			return request.ErrNotFound
		}

		if o.ReplaceResults {
			if err := replaceResults(ctx, tx, o.RequestID, o.Results); err != nil {
				return err
			}
		}

		return appendEvent(ctx, tx, o.Event)
	})
}

func replaceResults(ctx context.Context, tx database.Tx, requestID uuid.UUID, results []request.ResultCandidate) error {
	if _, err := tx.Exec(ctx, `DELETE FROM result_candidates WHERE request_id = $1`, requestID); err != nil {
		return fmt.Errorf("delete results: %w", err)
	}

	for i, c := range results {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().UTC()
		}
		rank := c.Rank
		if rank <= 0 {
			rank = i + 1
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO result_candidates (
				id, request_id, rank, candidate_name, email, score, skills, missing_skills, summary, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			c.ID,
			requestID,
			rank,
			c.CandidateName,
			c.Email,
			c.Score,
			pq.StringArray(nonNil(c.Skills)),
			pq.StringArray(nonNil(c.MissingSkills)),
			c.Summary,
			c.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert result %d: %w", i, err)
		}

		for pos, h := range c.Highlights {
			_, err := tx.Exec(ctx,
				`INSERT INTO result_highlights (id, result_candidate_id, position, skill, evidence)
				 VALUES ($1, $2, $3, $4, $5)`,
				uuid.New(),
				c.ID,
				pos,
				h.Skill,
				h.Evidence,
			)
			if err != nil {
				return fmt.Errorf("insert highlight %d/%d: %w", i, pos, err)
			}
		}
	}
	return nil
}

func (r *PostgresRequestRepository) ExpireStale(ctx context.Context, before time.Time) ([]request.Expired, error) {
	var out []request.Expired
	err := database.WithTx(ctx, r.db, func(tx database.Tx) error {
		rows, err := tx.Query(ctx,
			`WITH stale AS (
				SELECT id, status FROM requests
				WHERE status = ANY($1) AND updated_at < $2
				FOR UPDATE SKIP LOCKED
			)
			UPDATE requests r SET status = 'FAILED', updated_at = now()
			FROM stale
			WHERE r.id = stale.id
			RETURNING r.id, r.tenant_id, stale.status`,
			pq.Array(request.Strings(request.InFlightStatuses)),
			before,
		)
		if err != nil {
			return fmt.Errorf("expire stale requests: %w", err)
		}
		for rows.Next() {
			var (
				e    request.Expired
				prev string
			)
			if err := rows.Scan(&e.ID, &e.TenantID, &prev); err != nil {
				rows.Close()
				return err
			}
			e.PrevStatus = request.Status(prev)
			out = append(out, e)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return err
		}

		for _, e := range out {
			entry := event.New(e.TenantID, e.ID, event.TypeRequestExpired, map[string]any{
				"previousStatus": string(e.PrevStatus),
				"deadline":       before.UTC().Format(time.RFC3339),
			})
			if err := appendEvent(ctx, tx, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRequestRepository) CountBillableSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM requests WHERE tenant_id = $1 AND created_at >= $2 AND status <> 'DRAFT'`,
		tenantID,
		since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count billable requests: %w", err)
	}
	return n, nil
}

func (r *PostgresRequestRepository) GetFile(ctx context.Context, kind request.FileKind, fileID uuid.UUID) (request.OwnedFile, error) {
	table, err := fileTable(kind)
	if err != nil {
		return request.OwnedFile{}, err
	}
	var f request.OwnedFile
	f.Kind = kind
	err = r.db.QueryRow(ctx,
		`SELECT f.id, f.request_id, f.filename, f.mime_type, f.storage_path, f.file_size, f.created_at, r.tenant_id
		 FROM `+table+` f
		 JOIN requests r ON r.id = f.request_id
		 WHERE f.id = $1`,
		fileID,
	).Scan(&f.ID, &f.RequestID, &f.Filename, &f.MimeType, &f.StoragePath, &f.FileSize, &f.CreatedAt, &f.TenantID)
	if err != nil {
		if database.IsNoRows(err) {
			return request.OwnedFile{}, request.ErrFileNotFound
		}
		return request.OwnedFile{}, err
	}
	return f, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
