package interceptor

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/authz"
	"wastebank-backend/internal/config"
	"wastebank-backend/internal/logger"
	"wastebank-backend/internal/security"
)

type AuthInterceptor struct {
	tokenManager security.TokenManager
}

func NewAuthInterceptor(tm security.TokenManager) *AuthInterceptor {
	return &AuthInterceptor{tokenManager: tm}
}

// Unary returns a server interceptor that resolves the caller for every
// non-public unary RPC and maps application errors onto gRPC status codes.
func (i *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := i.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		resp, err := handler(ctx, req)
		if err != nil {
			return nil, ToStatus(err)
		}
		return resp, nil
	}
}

// Stream is the streaming counterpart of Unary.
func (i *AuthInterceptor) Stream() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := i.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		if err := handler(srv, &authenticatedStream{ServerStream: ss, ctx: ctx}); err != nil {
			return ToStatus(err)
		}
		return nil
	}
}

func (i *AuthInterceptor) authenticate(ctx context.Context, fullMethod string) (context.Context, error) {
	if config.GetSecurityLevel(config.GRPCMethod, fullMethod) == config.SecurityPublic {
		return ctx, nil
	}

	token, err := extractToken(ctx)
	if err != nil {
		return nil, err
	}
	caller, err := i.tokenManager.Authenticate(token)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, apperr.PublicMessage(err))
	}

	ctx = authz.WithCaller(ctx, caller)
	return logger.WithContext(ctx, "user_id", caller.UserID, "grpc_method", fullMethod), nil
}

func extractToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "metadata is not provided")
	}

	authHeader := md["authorization"]
	if len(authHeader) == 0 {
		return "", status.Error(codes.Unauthenticated, "authorization token is not provided")
	}

	token := authHeader[0]
	// Remove Bearer prefix if present
	if len(token) > 7 && strings.ToUpper(token[0:7]) == "BEARER " {
		token = token[7:]
	}
	return token, nil
}

// ToStatus converts an application error into a gRPC status error. Errors
// that already carry a status pass through.
func ToStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return status.Error(codes.Canceled, err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	code := codes.Internal
	switch apperr.Kind(err) {
	case apperr.ErrValidation:
		code = codes.InvalidArgument
	case apperr.ErrAuthentication:
		code = codes.Unauthenticated
	case apperr.ErrAuthorization:
		code = codes.PermissionDenied
	case apperr.ErrNotFound:
		code = codes.NotFound
	case apperr.ErrConflict:
		code = codes.FailedPrecondition
	case apperr.ErrRateLimited:
		code = codes.ResourceExhausted
	}
	return status.Error(code, apperr.PublicMessage(err))
}

type authenticatedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authenticatedStream) Context() context.Context {
	return s.ctx
}
