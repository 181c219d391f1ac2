// Package requests parses namespace definition documents (YAML or JSON) into
// the typed create requests the NameFS entrypoints accept.
package requests

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"

	namefs "github.com/brettbedarf/namefs"
)

// GetNodeType extracts the node type from a raw definition without full
// unmarshaling
func GetNodeType(data []byte) (namefs.NodeCreateRequestType, error) {
	var meta struct {
		Type namefs.NodeCreateRequestType `yaml:"type" json:"type"`
	}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return "", err
	}
	return meta.Type, nil
}

// UnmarshalFileRequest handles file-specific unmarshaling
func UnmarshalFileRequest(data []byte) (*namefs.FileCreateRequest, error) {
	var req namefs.FileCreateRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// UnmarshalDirRequest handles explicit directory unmarshaling
func UnmarshalDirRequest(data []byte) (*namefs.DirCreateRequest, error) {
	var req namefs.DirCreateRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// UnmarshalSymlinkRequest handles symlink unmarshaling
func UnmarshalSymlinkRequest(data []byte) (*namefs.SymlinkCreateRequest, error) {
	var req namefs.SymlinkCreateRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// UnmarshalNodeRequest dispatches on the definition's type field and returns
// the concrete request
func UnmarshalNodeRequest(data []byte) (namefs.NodeRequestor, error) {
	nodeType, err := GetNodeType(data)
	if err != nil {
		return nil, err
	}
	switch nodeType {
	case namefs.FileNodeType:
		return UnmarshalFileRequest(data)
	case namefs.DirNodeType:
		return UnmarshalDirRequest(data)
	case namefs.SymlinkNodeType:
		return UnmarshalSymlinkRequest(data)
	default:
		return nil, fmt.Errorf("unknown node type: %s", nodeType)
	}
}

// LoadDefinitionFile parses a whole definition file, a YAML (or JSON) list of
// node definitions, into concrete requests in document order.
func LoadDefinitionFile(path string, data []byte) ([]namefs.NodeRequestor, error) {
	var rawNodes []yaml.Node
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &rawNodes); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".json":
		// yaml.v3 accepts JSON, but keep errors in JSON terms for JSON files
		var check []json.RawMessage
		if err := json.Unmarshal(data, &check); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &rawNodes); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported definition file extension: %s", path)
	}

	reqs := make([]namefs.NodeRequestor, 0, len(rawNodes))
	for i := range rawNodes {
		raw, err := yaml.Marshal(&rawNodes[i])
		if err != nil {
			return nil, fmt.Errorf("failed to re-encode node %d: %w", i, err)
		}
		req, err := UnmarshalNodeRequest(raw)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}
