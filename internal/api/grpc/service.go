// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package grpc 提供 gRPC 服务端，与 HTTP 查询能力对齐；消息统一使用 google.protobuf.Struct，无需生成代码。
package grpc

import (
	"context"
	"encoding/json"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"adaptive-rag/internal/router"
)

// ServiceName gRPC 服务全名
const ServiceName = "adaptiverag.RagService"

// QueryRouter 与 HTTP 层相同的路由能力
type QueryRouter interface {
	Process(ctx context.Context, query string) router.QueryResult
	ChatMemory() []router.Turn
	ClearChatMemory()
}

// Server gRPC 服务端
type Server struct {
	router QueryRouter
}

// NewServer 创建 gRPC Server
func NewServer(r QueryRouter) *Server {
	return &Server{router: r}
}

// Register 注册 RagService 到 grpc.Server
func (s *Server) Register(grpcServer *grpc.Server) {
	grpcServer.RegisterService(&serviceDesc, s)
}

// Query 请求 {"question": "..."}，响应为 QueryResult 的 JSON 结构
func (s *Server) Query(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	q := strings.TrimSpace(req.GetFields()["question"].GetStringValue())
	if q == "" {
		return nil, status.Error(codes.InvalidArgument, "question required")
	}
	return toStruct(s.router.Process(ctx, q))
}

// GetChatMemory 响应 {"memory": [...]}
func (s *Server) GetChatMemory(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return toStruct(map[string]interface{}{"memory": s.router.ChatMemory()})
}

// ClearChatMemory 响应 {"success": true, "message": "..."}
func (s *Server) ClearChatMemory(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	s.router.ClearChatMemory()
	return structpb.NewStruct(map[string]interface{}{"success": true, "message": "Chat memory cleared"})
}

// toStruct 经 JSON 往返转换，保持与 HTTP 响应相同的字段名
func toStruct(v interface{}) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "marshal response: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "unmarshal response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build struct: %v", err)
	}
	return out, nil
}

type ragServiceServer interface {
	Query(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetChatMemory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClearChatMemory(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func unaryHandler(method string, call func(ragServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ragServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(ragServiceServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ragServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Query", ragServiceServer.Query),
		unaryHandler("GetChatMemory", ragServiceServer.GetChatMemory),
		unaryHandler("ClearChatMemory", ragServiceServer.ClearChatMemory),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "adaptiverag/rag_service.proto",
}

// Invoke 客户端调用辅助：method 为 Query / GetChatMemory / ClearChatMemory
func Invoke(ctx context.Context, cc grpc.ClientConnInterface, method string, req *structpb.Struct) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if req == nil {
		req = &structpb.Struct{}
	}
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, out); err != nil {
		return nil, err
	}
	return out, nil
}
