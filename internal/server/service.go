package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/document-extractor/internal/common"
	"github.com/joseph-ayodele/document-extractor/internal/entity"
	"github.com/joseph-ayodele/document-extractor/internal/pipeline"
)

const (
	ExtractorServiceName = "docextract.v1.Extractor"
	ExtractFullMethod    = "/" + ExtractorServiceName + "/Extract"

	// FilenameKey is optional request metadata naming the uploaded image.
	FilenameKey = "x-filename"
)

// BytesProcessor runs the pipeline on an encoded image.
type BytesProcessor interface {
	ProcessBytes(ctx context.Context, name string, data []byte) (pipeline.Outcome, error)
}

// ExtractorServer is the server API for docextract.v1.Extractor.
type ExtractorServer interface {
	Extract(context.Context, *wrapperspb.BytesValue) (*structpb.Struct, error)
}

// ExtractorServiceDesc uses well-known wrapper types for both messages, so
// the service needs no generated code.
var ExtractorServiceDesc = grpc.ServiceDesc{
	ServiceName: ExtractorServiceName,
	HandlerType: (*ExtractorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Extract", Handler: extractHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "docextract/v1/extractor.proto",
}

func RegisterExtractorServer(s grpc.ServiceRegistrar, srv ExtractorServer) {
	s.RegisterService(&ExtractorServiceDesc, srv)
}

func extractHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExtractorServer).Extract(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ExtractFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ExtractorServer).Extract(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// ExtractorClient calls docextract.v1.Extractor.
type ExtractorClient struct {
	cc grpc.ClientConnInterface
}

func NewExtractorClient(cc grpc.ClientConnInterface) *ExtractorClient {
	return &ExtractorClient{cc: cc}
}

func (c *ExtractorClient) Extract(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ExtractFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type ExtractorService struct {
	proc   BytesProcessor
	logger *slog.Logger
}

var _ ExtractorServer = (*ExtractorService)(nil)

func NewExtractorService(proc BytesProcessor, logger *slog.Logger) *ExtractorService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractorService{proc: proc, logger: logger}
}

// Extract runs one image through the pipeline and returns the record as a
// Struct. Diagnostics travel in the response header.
func (s *ExtractorService) Extract(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	if err := common.ValidateAndReturnError(common.NewValidator().Field("image", req.GetValue(), common.Required)); err != nil {
		return nil, err
	}
	name := "upload"
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(FilenameKey); len(v) > 0 && v[0] != "" {
			name = v[0]
		}
	}

	s.logger.Info("grpc.extract.start", "name", name, "bytes", len(req.GetValue()))
	out, err := s.proc.ProcessBytes(ctx, name, req.GetValue())
	if err != nil {
		s.logger.Warn("grpc.extract.failed", "name", name, "status", out.Status, "error", err)
		return nil, common.ToStatus(err)
	}

	if d := out.Diagnostics; d != nil {
		_ = grpc.SetHeader(ctx, diagnosticsHeader(d))
	}
	st, err := RecordStruct(out.Record)
	if err != nil {
		s.logger.Error("grpc.extract.encode_failed", "name", name, "error", err)
		return nil, status.Error(codes.Internal, "encode record")
	}
	return st, nil
}

func diagnosticsHeader(d *entity.Diagnostics) metadata.MD {
	md := metadata.Pairs(
		"x-request-id", d.RequestID,
		"x-llm-contributed", strconv.FormatBool(d.LLMContributed),
		"x-elapsed-ms", strconv.FormatInt(d.ElapsedMS, 10),
	)
	if d.LLMSkipReason != "" {
		md.Set("x-llm-skip-reason", d.LLMSkipReason)
	}
	if w := d.Consistency; w != nil {
		md.Set("x-consistency-expected", w.Expected)
		md.Set("x-consistency-reported", w.Reported)
	}
	return md
}

// RecordStruct converts a record to its JSON shape as a protobuf Struct.
func RecordStruct(rec *entity.DocumentRecord) (*structpb.Struct, error) {
	if rec == nil {
		rec = entity.NewDocumentRecord()
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
