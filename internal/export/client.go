package export

import (
	"context"
	"fmt"
	"time"

	collogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// DefaultTimeout bounds a single Export call.
const DefaultTimeout = 10 * time.Second

// ClientConfig holds optional client settings.
type ClientConfig struct {
	Timeout     time.Duration
	DialOptions []grpc.DialOption
}

// Client pushes logs to an OTLP/gRPC collector.
type Client struct {
	conn    *grpc.ClientConn
	logs    collogspb.LogsServiceClient
	timeout time.Duration
}

// NewClient connects lazily to endpoint (host:port). Connections are
// plaintext unless DialOptions supply credentials.
func NewClient(endpoint string, conf ...ClientConfig) (*Client, error) {
	timeout := DefaultTimeout
	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if len(conf) > 0 {
		if conf[0].Timeout > 0 {
			timeout = conf[0].Timeout
		}
		opts = append(opts, conf[0].DialOptions...)
	}

	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("export: connect %s: %w", endpoint, err)
	}
	return &Client{
		conn:    conn,
		logs:    collogspb.NewLogsServiceClient(conn),
		timeout: timeout,
	}, nil
}

// Export sends data in one request. A partial success from the collector is
// returned as an error carrying the rejected count.
func (c *Client) Export(ctx context.Context, data *logspb.LogsData) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.logs.Export(ctx, &collogspb.ExportLogsServiceRequest{
		ResourceLogs: data.GetResourceLogs(),
	})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if ps := resp.GetPartialSuccess(); ps != nil && ps.GetRejectedLogRecords() > 0 {
		return fmt.Errorf("export: collector rejected %d log records: %s",
			ps.GetRejectedLogRecords(), ps.GetErrorMessage())
	}
	return nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
