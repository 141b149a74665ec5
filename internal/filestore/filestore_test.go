package filestore_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/programme-lv/executor/internal/filestore"
	"github.com/stretchr/testify/require"
)

func sha(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func TestFileStore(t *testing.T) {
	plain := "315941512 -119267504\n"
	packed := "196674008\n"

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll([]byte(packed), nil)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/plain.txt":
			_, _ = w.Write([]byte(plain))
		case "/packed.zst":
			_, _ = w.Write(compressed)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	fs := filestore.New(t.TempDir(), t.TempDir(), filestore.WithHTTPClient(srv.Client()))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fs.Start(ctx)

	err = fs.Schedule(sha(plain), srv.URL+"/plain.txt")
	require.NoError(t, err)

	body, err := fs.Await(sha(plain))
	require.NoError(t, err)
	require.Equal(t, plain, string(body))

	_, err = fs.Await(sha("never scheduled"))
	require.ErrorIs(t, err, filestore.ErrNotScheduled)

	// mismatch in integrity hash
	wrong := sha("something else")
	err = fs.Schedule(wrong, srv.URL+"/plain.txt")
	require.NoError(t, err)
	_, err = fs.Await(wrong)
	require.ErrorContains(t, err, "sha256 mismatch")

	err = fs.Schedule(sha(packed), srv.URL+"/packed.zst")
	require.NoError(t, err)
	err = fs.Schedule(sha(packed), srv.URL+"/packed.zst")
	require.NoError(t, err)

	body, err = fs.Await(sha(packed))
	require.NoError(t, err)
	require.Equal(t, packed, string(body))

	// cached files are served without another request
	before := hits.Load()
	body, err = fs.Await(sha(packed))
	require.NoError(t, err)
	require.Equal(t, packed, string(body))
	require.Equal(t, before, hits.Load())

	missing := sha("missing")
	require.NoError(t, fs.Schedule(missing, srv.URL+"/missing"))
	_, err = fs.Await(missing)
	require.ErrorContains(t, err, "404")
}

func TestScheduleRejectsInvalidKey(t *testing.T) {
	fs := filestore.New(t.TempDir(), t.TempDir())
	require.Error(t, fs.Schedule("../../etc/passwd", "http://example.com"))
	require.Error(t, fs.Schedule(sha("x"), " "))
}
