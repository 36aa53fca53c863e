package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcmsa/msaauth/internal/auth/msa"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ msa.StageObserver = (*Recorder)(nil)

func TestRecorderObserveStage(t *testing.T) {
	t.Parallel()

	recorder := NewRecorder()
	recorder.ObserveStage(msa.StageMicrosoftToken, 120*time.Millisecond, nil)
	recorder.ObserveStage(msa.StageXboxLive, 80*time.Millisecond, nil)
	recorder.ObserveStage(msa.StageXSTS, 40*time.Millisecond, &msa.StageError{Stage: msa.StageXSTS, Kind: msa.KindProtocol})
	recorder.ObserveStage(msa.StageProfile, time.Millisecond, errors.New("opaque"))

	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.stageFailures.WithLabelValues("xsts", "protocol_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.stageFailures.WithLabelValues("profile", "unknown")))
	assert.Equal(t, 4, testutil.CollectAndCount(recorder.stageDuration))
}

func TestRecorderObserveRun(t *testing.T) {
	t.Parallel()

	recorder := NewRecorder()
	recorder.ObserveRun(errors.New("failed"))
	recorder.ObserveRun(nil)
	recorder.ObserveRun(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.runs.WithLabelValues("failure")))
	assert.Equal(t, 2.0, testutil.ToFloat64(recorder.runs.WithLabelValues("success")))
	assert.Greater(t, testutil.ToFloat64(recorder.lastSuccess), 0.0)
}

func TestRecorderWriteTextfile(t *testing.T) {
	t.Parallel()

	recorder := NewRecorder()
	recorder.ObserveStage(msa.StagePlatformToken, 200*time.Millisecond, nil)
	recorder.ObserveRun(nil)

	path := filepath.Join(t.TempDir(), "textfile", "msaauth.prom")
	require.NoError(t, recorder.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `msaauth_stage_duration_seconds_count{outcome="success",stage="platform_token"} 1`)
	assert.Contains(t, string(data), `msaauth_runs_total{outcome="success"} 1`)
}
