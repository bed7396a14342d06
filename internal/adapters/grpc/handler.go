package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/quentinrf/light-analyzer/internal/domain"
	"github.com/quentinrf/light-analyzer/internal/ports"
)

// ControlHandler implements the gRPC SamplingControl service.
type ControlHandler struct {
	controller ports.Controller
	journal    domain.SessionRepository
	feed       *Feed
}

// NewControlHandler creates a new gRPC handler; WatchReadings streams from feed
func NewControlHandler(controller ports.Controller, journal domain.SessionRepository, feed *Feed) *ControlHandler {
	return &ControlHandler{
		controller: controller,
		journal:    journal,
		feed:       feed,
	}
}

// Start begins a sampling session and returns the resulting status
func (h *ControlHandler) Start(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	log.Info().Msg("Start called")

	if err := h.controller.Start(ctx); err != nil {
		log.Error().Err(err).Msg("failed to start sampling")
		return nil, toStatusError(err)
	}

	return statusToProto(h.controller.Status()), nil
}

// Stop ends the sampling session and returns the resulting status
func (h *ControlHandler) Stop(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	log.Info().Msg("Stop called")

	h.controller.Stop(ctx)
	return statusToProto(h.controller.Status()), nil
}

// GetStatus returns the current session status
func (h *ControlHandler) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return statusToProto(h.controller.Status()), nil
}

// ListSessions returns journaled sessions within the requested window
func (h *ControlHandler) ListSessions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	start, end, err := domain.ParseRange(fields["from"].GetStringValue(), fields["to"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	sessions, err := h.journal.GetSessionsInRange(ctx, start, end)
	if err != nil {
		log.Error().Err(err).Msg("failed to list sessions")
		return nil, status.Error(codes.Internal, "failed to list sessions")
	}

	return sessionsToProto(sessions), nil
}

// WatchReadings streams display updates and notices until the client
// leaves or the feed is closed
func (h *ControlHandler) WatchReadings(_ *emptypb.Empty, stream grpc.ServerStream) error {
	ch := h.feed.attach()
	defer h.feed.detach(ch)

	log.Info().Msg("WatchReadings client attached")

	for {
		select {
		case <-stream.Context().Done():
			log.Info().Msg("WatchReadings client detached")
			return nil
		case <-h.feed.closed:
			return status.Error(codes.Unavailable, "server shutting down")
		case msg := <-ch:
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}

// toStatusError maps session errors onto gRPC codes
func toStatusError(err error) error {
	switch {
	case errors.Is(err, domain.ErrSensorUnavailable):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable), errors.Is(err, domain.ErrDirectoryCreateFailed):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, "failed to start sampling")
	}
}

// statusToProto converts session status to a protobuf Struct
func statusToProto(s ports.Status) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"active":         structpb.NewBoolValue(s.Active),
		"reading_count":  structpb.NewNumberValue(float64(s.ReadingCount)),
		"last_lux":       structpb.NewNumberValue(float64(s.LastLux)),
		"last_lux_text":  structpb.NewStringValue(domain.FormatLux(s.LastLux)),
		"write_failures": structpb.NewNumberValue(float64(s.WriteFailures)),
		"session_id":     structpb.NewStringValue(s.SessionID),
		"log_path":       structpb.NewStringValue(s.LogPath),
	}}
}

func updateToProto(count uint64, lux float32) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"type":     structpb.NewStringValue("reading"),
		"count":    structpb.NewNumberValue(float64(count)),
		"lux":      structpb.NewNumberValue(float64(lux)),
		"lux_text": structpb.NewStringValue(domain.FormatLux(lux)),
		"category": structpb.NewStringValue(domain.LightCategory(lux)),
	}}
}

func noticeToProto(message string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"type":    structpb.NewStringValue("notice"),
		"message": structpb.NewStringValue(message),
	}}
}

// sessionsToProto converts journal records to {"sessions": [...]}, oldest first.
// Times are RFC 3339 strings; stopped_at is empty while a session runs.
func sessionsToProto(sessions []*domain.SessionRecord) *structpb.Struct {
	list := make([]*structpb.Value, 0, len(sessions))
	for _, s := range sessions {
		var stopped string
		if !s.Running() {
			stopped = s.StoppedAt.UTC().Format(time.RFC3339Nano)
		}
		list = append(list, structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
			"id":             structpb.NewStringValue(s.ID),
			"started_at":     structpb.NewStringValue(s.StartedAt.UTC().Format(time.RFC3339Nano)),
			"stopped_at":     structpb.NewStringValue(stopped),
			"running":        structpb.NewBoolValue(s.Running()),
			"reading_count":  structpb.NewNumberValue(float64(s.ReadingCount)),
			"write_failures": structpb.NewNumberValue(float64(s.WriteFailures)),
			"log_path":       structpb.NewStringValue(s.LogPath),
		}}))
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"sessions": structpb.NewListValue(&structpb.ListValue{Values: list}),
	}}
}
