package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/smazurov/ptzrelay/internal/api/models"
)

const passthroughBufferSize = 32 * 1024

func (s *Server) registerStreamRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "camera-stream",
		Method:      http.MethodGet,
		Path:        "/api/stream",
		Summary:     "Camera Stream",
		Description: "Pass the camera's own MJPEG preview through unchanged",
		Tags:        []string{"stream"},
		Errors:      commandErrors,
	}, func(ctx context.Context, _ *struct{}) (*huma.StreamResponse, error) {
		stream, err := s.options.Control.OpenStream(ctx)
		if err != nil {
			return nil, mapCommandError("Failed to open camera stream", err)
		}

		return &huma.StreamResponse{
			Body: func(hctx huma.Context) {
				defer stream.Body.Close()

				contentType := stream.ContentType
				if contentType == "" {
					contentType = "multipart/x-mixed-replace"
				}
				hctx.SetHeader("Content-Type", contentType)
				hctx.SetHeader("Cache-Control", "no-cache")
				hctx.SetStatus(http.StatusOK)

				n, err := copyFlushing(hctx.BodyWriter(), stream.Body)
				if err != nil && !errors.Is(err, context.Canceled) {
					s.logger.Debug("Camera stream passthrough ended", "bytes", n, "error", err)
				}
			},
		}, nil
	})

	if s.options.Stream == nil {
		return
	}

	huma.Register(s.api, huma.Operation{
		OperationID: "stream-status",
		Method:      http.MethodGet,
		Path:        "/api/stream/status",
		Summary:     "Relay Status",
		Description: "Transcoder state, subscriber count and restart history",
		Tags:        []string{"stream"},
	}, func(_ context.Context, _ *struct{}) (*models.StreamStatusResponse, error) {
		st := s.options.Stream.Status()
		return &models.StreamStatusResponse{
			Body: models.StreamStatusData{
				Info:           st.Info,
				Subscribers:    st.Subscribers,
				GracePending:   st.GracePending,
				RestartPending: st.RestartPending,
			},
		}, nil
	})
}

// copyFlushing copies src to w, flushing after every read so multipart
// frames reach the browser as they arrive.
func copyFlushing(w io.Writer, src io.Reader) (int64, error) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, passthroughBufferSize)

	var total int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			written, err := w.Write(buf[:n])
			total += int64(written)
			if err != nil {
				return total, err
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr == io.EOF {
			return total, nil
		}
		if readErr != nil {
			return total, readErr
		}
	}
}
