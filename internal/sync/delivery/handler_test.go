package delivery

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"nexcrm-backend/internal/sync/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callRespond(t *testing.T, result *usecase.RunResult) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/gmail/sync", nil)

	h := &SyncHandler{}
	h.respond(c, result)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestRespond_Success(t *testing.T) {
	w, body := callRespond(t, &usecase.RunResult{
		Success:           true,
		SyncJobID:         "job-1",
		ProcessedMessages: 4,
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "job-1", body["sync_job_id"])
}

func TestRespond_ReauthRequiredIs401(t *testing.T) {
	w, body := callRespond(t, &usecase.RunResult{
		ReauthRequired: true,
		ErrorMessage:   "authorization expired",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, true, body["reauthRequired"])
}

func TestRespond_NotLinkedIs403(t *testing.T) {
	w, body := callRespond(t, &usecase.RunResult{
		NotLinked:    true,
		ErrorMessage: "gmail account not linked",
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, true, body["notLinked"])
}

func TestRespond_QuotaExceededIs429(t *testing.T) {
	w, body := callRespond(t, &usecase.RunResult{
		QuotaExceeded: true,
		ErrorMessage:  "provider quota exceeded, retry later",
	})

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, true, body["quotaExceeded"])
}

func TestRespond_GenericFailureIs500(t *testing.T) {
	w, body := callRespond(t, &usecase.RunResult{
		ErrorMessage: "backend down",
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "backend down", body["error_message"])
}
