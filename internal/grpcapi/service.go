// Package grpcapi exposes a small gRPC service — RunPreset (unary) and
// StreamSnapshots (server-streaming) — for remote consumers of a run's
// timeline, such as an out-of-process scrubber/renderer. It is wired
// directly against google.golang.org/grpc's low-level service
// registration (grpc.ServiceDesc) and a JSON encoding.Codec (codec.go)
// rather than protoc-generated stubs, since no .proto toolchain output
// is available to generate from in this environment.
package grpcapi

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/eqsat/eqsat/internal/engine"
	"github.com/eqsat/eqsat/internal/repository"
	"github.com/eqsat/eqsat/pkg/model"
	"github.com/eqsat/eqsat/pkg/utils"
)

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// RunPresetRequest asks the service to load a stored preset and run it
// to a halt.
type RunPresetRequest struct {
	PresetId string        `json:"preset_id"`
	Options  model.Options `json:"options,omitempty"`
}

// RunPresetResponse carries the completed run's halted reason and
// snapshot count; the full timeline is fetched separately (via
// internal/webui or internal/storage) to keep the unary response small.
type RunPresetResponse struct {
	HaltedReason model.HaltedReason `json:"halted_reason"`
	StepCount    int                `json:"step_count"`
}

// StreamSnapshotsRequest asks the service to run a preset step by step,
// streaming each snapshot as it is produced.
type StreamSnapshotsRequest struct {
	PresetId string        `json:"preset_id"`
	Options  model.Options `json:"options,omitempty"`
}

// SnapshotStream is the server-streaming half of StreamSnapshots; it
// mirrors grpc.ServerStream with a typed Send, the shape grpc's
// generated code would otherwise produce.
type SnapshotStream interface {
	Send(*model.Snapshot) error
	grpc.ServerStream
}

type snapshotServerStream struct {
	grpc.ServerStream
}

func (s *snapshotServerStream) Send(snap *model.Snapshot) error {
	return s.ServerStream.SendMsg(snap)
}

// Service implements the RunPreset/StreamSnapshots handlers against a
// preset repository and the in-process engine.
type Service struct {
	repos  *repository.Repositories
	clock  utils.Clock
	logger utils.Logger
}

// NewService creates a new Service.
func NewService(repos *repository.Repositories, clock utils.Clock, logger utils.Logger) *Service {
	if clock == nil {
		clock = utils.NewRealClock()
	}
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}
	return &Service{repos: repos, clock: clock, logger: logger}
}

// RunPreset loads req.PresetId and runs it to a halt synchronously.
func (s *Service) RunPreset(ctx context.Context, req *RunPresetRequest) (*RunPresetResponse, error) {
	presetRec, err := s.repos.Preset.GetPreset(ctx, req.PresetId)
	if err != nil {
		return nil, status.Errorf(codes.NotFound, "preset %s: %v", req.PresetId, err)
	}

	eng := engine.New(s.clock, s.logger)
	if err := eng.LoadPreset(presetRec.Preset, req.Options, nil); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "load preset: %v", err)
	}

	timeline, err := eng.RunUntilHalt()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "run: %v", err)
	}

	return &RunPresetResponse{
		HaltedReason: timeline.HaltedReason,
		StepCount:    len(timeline.States),
	}, nil
}

// StreamSnapshots loads req.PresetId and streams one snapshot per step
// until the run halts or the client cancels.
func (s *Service) StreamSnapshots(req *StreamSnapshotsRequest, stream SnapshotStream) error {
	presetRec, err := s.repos.Preset.GetPreset(stream.Context(), req.PresetId)
	if err != nil {
		return status.Errorf(codes.NotFound, "preset %s: %v", req.PresetId, err)
	}

	canceled := func() bool {
		return stream.Context().Err() != nil
	}

	eng := engine.New(s.clock, s.logger)
	if err := eng.LoadPreset(presetRec.Preset, req.Options, canceled); err != nil {
		return status.Errorf(codes.InvalidArgument, "load preset: %v", err)
	}

	for {
		snap, err := eng.Step()
		if err != nil {
			return status.Errorf(codes.Internal, "step: %v", err)
		}
		if snap == nil {
			return nil
		}
		if err := stream.Send(snap); err != nil {
			return fmt.Errorf("send snapshot: %w", err)
		}
	}
}

// serviceDesc is the hand-registered grpc.ServiceDesc equivalent to
// what protoc-gen-go-grpc would otherwise generate from a .proto file.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: "eqsat.grpcapi.RunService",
	HandlerType: (*Service)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RunPreset",
			Handler:    runPresetHandler,
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "StreamSnapshots",
			Handler:       streamSnapshotsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "eqsat/grpcapi.proto",
}

func runPresetHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(RunPresetRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	svc := srv.(*Service)
	if interceptor == nil {
		return svc.RunPreset(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: svc, FullMethod: "/eqsat.grpcapi.RunService/RunPreset"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return svc.RunPreset(ctx, req.(*RunPresetRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func streamSnapshotsHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(StreamSnapshotsRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	svc := srv.(*Service)
	return svc.StreamSnapshots(req, &snapshotServerStream{ServerStream: stream})
}

// RegisterRunServiceServer registers svc against server using the
// hand-built service descriptor above.
func RegisterRunServiceServer(server *grpc.Server, svc *Service) {
	server.RegisterService(&serviceDesc, svc)
}
