package export

import (
	"fmt"
	"os"

	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Marshal encodes data as binary protobuf, or as OTLP/JSON when asJSON is set.
func Marshal(data *logspb.LogsData, asJSON bool) ([]byte, error) {
	if asJSON {
		return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(data)
	}
	return proto.Marshal(data)
}

// WriteFile writes data to path in the chosen encoding.
func WriteFile(path string, data *logspb.LogsData, asJSON bool) error {
	b, err := Marshal(data, asJSON)
	if err != nil {
		return fmt.Errorf("export: marshal: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return nil
}

// ReadFile reads data written by WriteFile.
func ReadFile(path string, asJSON bool) (*logspb.LogsData, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("export: read %s: %w", path, err)
	}
	data := &logspb.LogsData{}
	if asJSON {
		err = protojson.Unmarshal(b, data)
	} else {
		err = proto.Unmarshal(b, data)
	}
	if err != nil {
		return nil, fmt.Errorf("export: unmarshal %s: %w", path, err)
	}
	return data, nil
}
