package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
)

func TestOK_MarshalsDataAndMeasuresTiming(t *testing.T) {
	start := time.Now().Add(-10 * time.Millisecond)
	resp, err := OK("req1", map[string]string{"foo": "bar"}, start)
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Nil(t, resp.Error)

	var data map[string]string
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.Equal(t, "bar", data["foo"])
	require.Greater(t, resp.Timing, time.Duration(0))
}

func TestFail_SetsErrorEnvelope(t *testing.T) {
	resp := Fail("req2", model.ErrWrongPage, "not on the order history page", nil, time.Now())
	require.False(t, resp.Success)
	require.Equal(t, model.ErrWrongPage, resp.Error.Code)
	require.Equal(t, "not on the order history page", resp.Error.Message)
}
