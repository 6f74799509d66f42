package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/dca-tracker/internal/domain"
	"github.com/simaogato/dca-tracker/internal/usecase/report"
)

// ServiceName is the fully qualified name of the report query service
const ServiceName = "dcatracker.v1.ReportService"

// ReportServiceServer is the server API of the report query service
type ReportServiceServer interface {
	GetReport(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetPortfolio(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// ReportServiceDesc describes the report query service for grpc.Server.RegisterService
var ReportServiceDesc = grpclib.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReportServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		{MethodName: "GetReport", Handler: getReportHandler},
		{MethodName: "GetPortfolio", Handler: getPortfolioHandler},
	},
	Streams:  []grpclib.StreamDesc{},
	Metadata: "dcatracker/v1/report.proto",
}

// Server implements the read-only ReportService gRPC server.
// It reads persisted state only and never takes the cycle lock.
type Server struct {
	PortfolioRepo domain.PortfolioRepository
	ReportService *report.ReportService
}

// NewServer creates a new gRPC server instance
func NewServer(portfolioRepo domain.PortfolioRepository, reportService *report.ReportService) *Server {
	return &Server{
		PortfolioRepo: portfolioRepo,
		ReportService: reportService,
	}
}

// NewGRPCServer builds a grpc.Server with the report service, the standard
// health service and reflection registered.
func NewGRPCServer(srv *Server, log zerolog.Logger) (*grpclib.Server, *health.Server) {
	grpcServer := grpclib.NewServer(
		grpclib.UnaryInterceptor(LoggingInterceptor(log)),
	)
	grpcServer.RegisterService(&ReportServiceDesc, srv)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	reflection.Register(grpcServer)
	return grpcServer, healthServer
}

// GetReport handles the GetReport RPC
func (s *Server) GetReport(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	rep, err := s.ReportService.Latest(ctx)
	if err != nil {
		return nil, toStatus(err, "failed to get report")
	}
	return toStruct(rep)
}

// GetPortfolio handles the GetPortfolio RPC
func (s *Server) GetPortfolio(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	p, err := s.PortfolioRepo.Load(ctx)
	if err != nil {
		return nil, toStatus(err, "failed to load portfolio")
	}
	if p.Version == 0 && len(p.History) == 0 {
		return nil, status.Error(codes.NotFound, "no data yet")
	}
	return toStruct(p)
}

// toStatus maps domain errors to gRPC status codes
func toStatus(err error, msg string) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, "no data yet")
	case errors.Is(err, domain.ErrCorruptState):
		return status.Errorf(codes.DataLoss, "%s: %v", msg, err)
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, msg)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, msg)
	default:
		return status.Errorf(codes.Internal, "%s: %v", msg, err)
	}
}

// toStruct converts a JSON-tagged document to a protobuf Struct
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode document: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to convert document: %v", err)
	}
	return out, nil
}

func getReportHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReportServiceServer).GetReport(ctx, in)
	}
	info := &grpclib.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/GetReport",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReportServiceServer).GetReport(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getPortfolioHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpclib.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ReportServiceServer).GetPortfolio(ctx, in)
	}
	info := &grpclib.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + ServiceName + "/GetPortfolio",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ReportServiceServer).GetPortfolio(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
