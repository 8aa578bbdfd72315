package orchestrate

import (
	"context"
	"errors"
	"net/http"

	"github.com/bufbuild/connect-go"

	"github.com/polyroute/polyroute/internal/observability"
	"github.com/polyroute/polyroute/internal/rpc"
	"github.com/polyroute/polyroute/internal/rpc/connectjson"
)

const ConnectGenerateProcedure = "/orchestrator.v1.OrchestratorService/Generate"

// NewConnectHandler builds a Connect bidi stream handler for Generate.
func NewConnectHandler(gen Generator, metrics *observability.Metrics) (string, http.Handler) {
	h := &connectGenerateHandler{gen: gen, metrics: metrics}
	return ConnectGenerateProcedure, connect.NewBidiStreamHandler(ConnectGenerateProcedure, h.handle, connect.WithCodec(connectjson.Codec{}))
}

type connectGenerateHandler struct {
	gen     Generator
	metrics *observability.Metrics
}

func (h *connectGenerateHandler) handle(ctx context.Context, stream *connect.BidiStream[rpc.GenerateStreamRequest, rpc.GenerateEvent]) error {
	h.metrics.IncActiveStreams("connect")
	defer h.metrics.DecActiveStreams("connect")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	first, err := stream.Receive()
	if err != nil {
		h.metrics.RecordTransportError("connect", "receive_first")
		return err
	}
	if first == nil || first.Generate == nil {
		h.metrics.RecordTransportError("connect", "missing_generate")
		return connect.NewError(connect.CodeInvalidArgument, errors.New("first message must include generate payload"))
	}

	// Listen for cancellation messages from the client.
	go func() {
		for {
			msg, recvErr := stream.Receive()
			if recvErr != nil {
				if !errors.Is(recvErr, context.Canceled) {
					h.metrics.RecordTransportError("connect", "receive_stream")
				}
				cancel()
				return
			}
			if msg != nil && msg.Cancel {
				cancel()
				return
			}
		}
	}()

	gen, genErr := h.gen.Generate(ctx, *first.Generate)
	if genErr != nil {
		h.metrics.RecordTransportError("connect", "generate_error")
		return connect.NewError(connect.CodeInvalidArgument, genErr)
	}

	routing := summarize(gen)
	sentFirst := false
	for c := range gen.Chunks {
		ev := rpc.EventFromChunk(gen.ID, c)
		if !sentFirst {
			ev.Routing = routing
			sentFirst = true
		}
		if err := stream.Send(&ev); err != nil {
			h.metrics.RecordTransportError("connect", "send")
			return err
		}
	}
	return nil
}
