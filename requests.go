package namefs

// Represents user input for node creation. It should be passed from
// entrypoints (i.e. cli, socket/web api, etc layers) to the NameFS Add
// methods
type NodeCreateRequest struct {
	NodeRequestor     `yaml:"-" json:"-"`
	AttrCreateRequest `yaml:",inline"`
	Path              string                `yaml:"path" json:"path"`
	Type              NodeCreateRequestType `yaml:"type" json:"type"`
}

type AttrCreateRequest struct {
	Owner *string `yaml:"owner,omitempty" json:"owner,omitempty"`
	Group *string `yaml:"group,omitempty" json:"group,omitempty"`
	Perm  *uint16 `yaml:"perm,omitempty" json:"perm,omitempty"` // i.e. 0755
	Mtime *int64  `yaml:"mtime,omitempty" json:"mtime,omitempty"`
	Atime *int64  `yaml:"atime,omitempty" json:"atime,omitempty"`
}

// Implement NodeRequestor interface for the base type
func (r *NodeCreateRequest) GetType() NodeCreateRequestType {
	return r.Type
}

func (r *NodeCreateRequest) GetPath() string {
	return r.Path
}

func (r *NodeCreateRequest) GetAttr() *AttrCreateRequest {
	return &r.AttrCreateRequest
}

type NodeCreateRequestType string

const (
	FileNodeType    NodeCreateRequestType = "file"
	DirNodeType     NodeCreateRequestType = "dir"
	SymlinkNodeType NodeCreateRequestType = "symlink"
)

type FileCreateRequest struct {
	NodeCreateRequest `yaml:",inline" json:",inline"`
	Length            int64 `yaml:"length" json:"length"`
}

type DirCreateRequest struct {
	NodeCreateRequest `yaml:",inline" json:",inline"`
	// Quotas apply to the created directory; nil leaves them unset.
	NsQuota *int64 `yaml:"nsQuota,omitempty" json:"nsQuota,omitempty"`
	DsQuota *int64 `yaml:"dsQuota,omitempty" json:"dsQuota,omitempty"`
}

type SymlinkCreateRequest struct {
	NodeCreateRequest `yaml:",inline" json:",inline"`
	Target            string `yaml:"target" json:"target"`
}
