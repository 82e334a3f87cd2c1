package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"matchmap/internal/domain/event"
	"matchmap/internal/domain/request"
	"matchmap/internal/observability"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

const callbackSchema = `{
	"type": "object",
	"required": ["requestId", "status"],
	"properties": {
		"requestId": {"type": "string", "minLength": 1},
		"status": {"type": "string", "enum": ["DONE", "FAILED"]},
		"error": {"type": ["string", "null"]},
		"results": {
			"type": ["array", "null"],
			"items": {
				"type": "object",
				"required": ["candidateName", "score"],
				"properties": {
					"candidateName": {"type": "string"},
					"email": {"type": ["string", "null"]},
					"score": {"type": "number", "minimum": 0, "maximum": 100},
					"skills": {"type": ["array", "null"], "items": {"type": "string"}},
					"highlights": {
						"type": ["array", "null"],
						"items": {
							"type": "object",
							"required": ["skill", "evidence"],
							"properties": {
								"skill": {"type": "string"},
								"evidence": {"type": "string"}
							}
						}
					},
					"missingSkills": {"type": ["array", "null"], "items": {"type": "string"}},
					"summary": {"type": ["string", "null"]}
				}
			}
		}
	}
}`

var compiledCallbackSchema = mustSchema(callbackSchema)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("compile callback schema: %v", err))
	}
	return schema
}

type callbackPayload struct {
	RequestID string           `json:"requestId"`
	Status    string           `json:"status"`
	Error     *string          `json:"error"`
	Results   []callbackResult `json:"results"`
}

type callbackResult struct {
	CandidateName string              `json:"candidateName"`
	Email         *string             `json:"email"`
	Score         float64             `json:"score"`
	Skills        []string            `json:"skills"`
	Highlights    []request.Highlight `json:"highlights"`
	MissingSkills []string            `json:"missingSkills"`
	Summary       *string             `json:"summary"`
}

type CallbackResult struct {
	RequestID    uuid.UUID
	Status       request.Status
	ResultsCount int
}

func parseCallback(body []byte) (callbackPayload, error) {
	res, err := compiledCallbackSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return callbackPayload{}, fmt.Errorf("%w: malformed JSON", ErrValidation)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return callbackPayload{}, fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
	}

	var p callbackPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return callbackPayload{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return p, nil
}

func toCandidates(in []callbackResult) []request.ResultCandidate {
	out := make([]request.ResultCandidate, 0, len(in))
	for i, r := range in {
		score := int(math.Round(r.Score))
		score = min(max(score, 0), 100)
		highlights := r.Highlights
		if highlights == nil {
			highlights = []request.Highlight{}
		}
		out = append(out, request.ResultCandidate{
			Rank:          i + 1,
			CandidateName: r.CandidateName,
			Email:         r.Email,
			Score:         score,
			Skills:        r.Skills,
			Highlights:    highlights,
			MissingSkills: r.MissingSkills,
			Summary:       r.Summary,
		})
	}
	return out
}

// ReceiveCallback applies the engine's verdict whatever the current status.
// DONE with no results keeps the results already stored.
func (c *Controller) ReceiveCallback(ctx context.Context, sig string, body []byte) (CallbackResult, error) {
	if c.verifier != nil && !c.verifier.Verify(body, sig) {
		observability.Callbacks.WithLabelValues(observability.OutcomeBadSignature).Inc()
		c.logger.Warn("callback rejected, bad signature", nil)
		return CallbackResult{}, ErrBadSignature
	}

	p, err := parseCallback(body)
	if err != nil {
		observability.Callbacks.WithLabelValues(observability.OutcomeInvalid).Inc()
		return CallbackResult{}, err
	}

	id, err := uuid.Parse(p.RequestID)
	if err != nil {
		observability.Callbacks.WithLabelValues(observability.OutcomeNotFound).Inc()
		return CallbackResult{}, ErrNotFound
	}
	r, err := c.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, request.ErrNotFound) {
			observability.Callbacks.WithLabelValues(observability.OutcomeNotFound).Inc()
			return CallbackResult{}, ErrNotFound
		}
		return CallbackResult{}, fmt.Errorf("load request: %w", err)
	}

	status := request.StatusFailed
	if p.Status == string(request.StatusDone) {
		status = request.StatusDone
	}

	var errMsg any
	if p.Error != nil {
		errMsg = *p.Error
	}
	outcome := request.Outcome{
		RequestID:      r.ID,
		Status:         status,
		CompletedAt:    c.now().UTC(),
		ReplaceResults: status == request.StatusDone && len(p.Results) > 0,
		Event: event.New(r.TenantID, r.ID, event.TypeCallback, map[string]any{
			"status":       string(status),
			"resultsCount": len(p.Results),
			"error":        errMsg,
		}),
	}
	if outcome.ReplaceResults {
		outcome.Results = toCandidates(p.Results)
	}

	if err := c.requests.ApplyOutcome(ctx, outcome); err != nil {
		observability.Callbacks.WithLabelValues(observability.OutcomeFailure).Inc()
		return CallbackResult{}, fmt.Errorf("apply callback: %w", mapNotFound(err))
	}

	observability.Callbacks.WithLabelValues(observability.OutcomeSuccess).Inc()
	c.transitioned(r.TenantID, r.ID, status)
	c.logger.Info("callback applied", map[string]interface{}{
		"request_id":      r.ID.String(),
		"previous_status": string(r.Status),
		"status":          string(status),
		"results":         len(p.Results),
	})
	return CallbackResult{RequestID: r.ID, Status: status, ResultsCount: len(p.Results)}, nil
}
