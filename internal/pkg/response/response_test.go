package response

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, h fiber.Handler) (int, SemanticResponse) {
	t.Helper()
	app := fiber.New()
	app.Get("/", h)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body SemanticResponse
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestSuccess(t *testing.T) {
	status, body := render(t, func(c fiber.Ctx) error {
		return Success(c, fiber.StatusCreated, "", map[string]any{"id": "r1"})
	})
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "created", body.Message)
	assert.Equal(t, map[string]any{"id": "r1"}, body.Data)

	status, _ = render(t, func(c fiber.Ctx) error {
		return Success(c, 42, "", nil)
	})
	assert.Equal(t, fiber.StatusOK, status)
}

func TestError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		message     string
		data        any
		wantStatus  int
		wantMessage string
		wantData    any
	}{
		{name: "payment required keeps data", status: 402, data: map[string]any{"requiresPayment": true}, wantStatus: 402, wantMessage: MessagePaymentRequired, wantData: map[string]any{"requiresPayment": true}},
		{name: "internal is masked", status: 500, message: "pq: relation missing", data: "leak", wantStatus: 500, wantMessage: MessageInternalServerError},
		{name: "unavailable keeps message", status: 503, message: "database unavailable", wantStatus: 503, wantMessage: "database unavailable"},
		{name: "non error status", status: 204, wantStatus: 500, wantMessage: MessageInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := render(t, func(c fiber.Ctx) error {
				return Error(c, tt.status, tt.message, tt.data)
			})
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.wantMessage, body.Message)
			assert.Equal(t, tt.wantData, body.Data)
		})
	}
}

func TestMessageFor(t *testing.T) {
	assert.Equal(t, MessageOK, MessageFor(200))
	assert.Equal(t, MessageUnprocessableEntity, MessageFor(422))
	assert.Equal(t, MessageInternalServerError, MessageFor(502))
	assert.Equal(t, MessageError, MessageFor(499))
}
