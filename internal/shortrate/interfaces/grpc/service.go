package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName 完整服务名
	ServiceName = "shortrate.v1.ShortRateService"

	GeneratePathsMethod  = "/" + ServiceName + "/GeneratePaths"
	GetRatesByYearMethod = "/" + ServiceName + "/GetRatesByYear"
)

// ShortRateServiceServer 服务端接口；请求与响应均为 google.protobuf.Struct
type ShortRateServiceServer interface {
	GeneratePaths(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRatesByYear(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterShortRateServiceServer 注册服务
func RegisterShortRateServiceServer(s grpc.ServiceRegistrar, srv ShortRateServiceServer) {
	s.RegisterService(&ShortRateServiceDesc, srv)
}

func generatePathsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ShortRateServiceServer).GeneratePaths(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GeneratePathsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ShortRateServiceServer).GeneratePaths(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getRatesByYearHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ShortRateServiceServer).GetRatesByYear(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetRatesByYearMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ShortRateServiceServer).GetRatesByYear(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ShortRateServiceDesc 服务描述
var ShortRateServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ShortRateServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GeneratePaths", Handler: generatePathsHandler},
		{MethodName: "GetRatesByYear", Handler: getRatesByYearHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "shortrate/v1/shortrate.proto",
}

// Client 基于 ClientConn.Invoke 的轻量客户端
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient 创建客户端
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// GeneratePaths 调用路径生成
func (c *Client) GeneratePaths(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GeneratePathsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRatesByYear 调用历史利率查询
func (c *Client) GetRatesByYear(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetRatesByYearMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
