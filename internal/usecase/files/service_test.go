package files

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"matchmap/internal/domain/request"
	"matchmap/internal/domain/tenant"
	"matchmap/internal/infrastructure/storage"
	"matchmap/internal/pkg/signature"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFiles map[uuid.UUID]request.OwnedFile

func (f fakeFiles) GetFile(_ context.Context, kind request.FileKind, id uuid.UUID) (request.OwnedFile, error) {
	of, ok := f[id]
	if !ok || of.Kind != kind {
		return request.OwnedFile{}, request.ErrFileNotFound
	}
	return of, nil
}

type fakeTenants map[string]tenant.Tenant

func (f fakeTenants) GetBySlug(_ context.Context, slug string) (tenant.Tenant, error) {
	t, ok := f[slug]
	if !ok {
		return tenant.Tenant{}, tenant.ErrNotFound
	}
	return t, nil
}

type fixture struct {
	svc     *Service
	signer  *signature.URLSigner
	acme    tenant.Tenant
	other   tenant.Tenant
	fileID  uuid.UUID
	orphan  uuid.UUID
	blobKey string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)

	acme := tenant.Tenant{ID: uuid.New(), Slug: "acme"}
	other := tenant.Tenant{ID: uuid.New(), Slug: "other"}

	fileID, orphan := uuid.New(), uuid.New()
	key := acme.ID.String() + "/r/applicant/cv_0000aaaa.txt"
	_, err = store.Upload(ctx, key, strings.NewReader("Anna Müller CV"), "text/plain")
	require.NoError(t, err)

	files := fakeFiles{
		fileID: {TenantID: acme.ID, File: request.File{ID: fileID, Kind: request.FileKindApplicant, Filename: "cv.txt", MimeType: "text/plain", StoragePath: key}},
		orphan: {TenantID: acme.ID, File: request.File{ID: orphan, Kind: request.FileKindApplicant, StoragePath: "missing/blob.txt"}},
	}
	signer, err := signature.NewURLSigner("file-secret")
	require.NoError(t, err)

	svc := NewService(files, fakeTenants{"acme": acme, "other": other}, store, signer, nil)
	return fixture{svc: svc, signer: signer, acme: acme, other: other, fileID: fileID, orphan: orphan, blobKey: key}
}

func actxFor(t tenant.Tenant) tenant.AuthenticatedTenantContext {
	return tenant.AuthenticatedTenantContext{UserID: uuid.New(), TenantID: t.ID, TenantSlug: t.Slug, Role: tenant.RoleMember}
}

func TestDownload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c, err := f.svc.Download(ctx, actxFor(f.acme), f.fileID, request.FileKindApplicant)
	require.NoError(t, err)
	assert.Equal(t, "Anna Müller CV", string(c.Data))
	assert.Equal(t, "text/plain", c.File.MimeType)

	tests := []struct {
		name string
		actx tenant.AuthenticatedTenantContext
		id   uuid.UUID
		kind request.FileKind
		want error
	}{
		{name: "other tenant", actx: actxFor(f.other), id: f.fileID, kind: request.FileKindApplicant, want: ErrForbidden},
		{name: "wrong kind", actx: actxFor(f.acme), id: f.fileID, kind: request.FileKindJob, want: ErrNotFound},
		{name: "unknown id", actx: actxFor(f.acme), id: uuid.New(), kind: request.FileKindApplicant, want: ErrNotFound},
		{name: "blob missing", actx: actxFor(f.acme), id: f.orphan, kind: request.FileKindApplicant, want: ErrNotFound},
		{name: "no session", actx: tenant.AuthenticatedTenantContext{}, id: f.fileID, kind: request.FileKindApplicant, want: ErrUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Download(ctx, tt.actx, tt.id, tt.kind)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDownloadWithToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	token, exp := f.signer.Sign("acme", f.fileID, "applicant", time.Hour)
	expRaw := strconv.FormatInt(exp, 10)

	c, err := f.svc.DownloadWithToken(ctx, "acme", f.fileID, request.FileKindApplicant, expRaw, token)
	require.NoError(t, err)
	assert.Equal(t, "Anna Müller CV", string(c.Data))

	_, err = f.svc.DownloadWithToken(ctx, "acme", f.fileID, request.FileKindApplicant, expRaw, "deadbeef")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	otherToken, otherExp := f.signer.Sign("other", f.fileID, "applicant", time.Hour)
	_, err = f.svc.DownloadWithToken(ctx, "other", f.fileID, request.FileKindApplicant, strconv.FormatInt(otherExp, 10), otherToken)
	assert.ErrorIs(t, err, ErrForbidden, "a token for another tenant cannot reach this file")
}
