package grpcserver

import (
	"context"

	"github.com/goccy/go-json"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"moviedb/pkg/apperr"
)

type Client struct {
	conn *grpc.ClientConn
}

// Dial connects without transport security; the service is meant for
// loopback use by the desktop front-end.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}
	conn, err := grpc.NewClient(addr, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Invoke runs one command. Failures come back as *apperr.Error carrying the
// server-side kind, with the gRPC status as the wrapped error.
func (c *Client) Invoke(ctx context.Context, token, command string, params any) (json.RawMessage, error) {
	req := &InvokeRequest{Command: command}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, command, err)
		}
		req.Params = raw
	}
	if token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	}

	var (
		reply   InvokeReply
		trailer metadata.MD
	)
	if err := c.conn.Invoke(ctx, InvokeMethod, req, &reply, grpc.Trailer(&trailer)); err != nil {
		kind := apperr.KindInternal
		if v := trailer.Get(KindTrailer); len(v) > 0 {
			kind = apperr.Kind(v[0])
		}
		return nil, &apperr.Error{Kind: kind, Op: command, Message: status.Convert(err).Message(), Err: err}
	}
	return reply.Result, nil
}
