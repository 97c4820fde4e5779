// Package config decodes the storage core's process-level configuration
// from the environment, the same way the teacher's example services do,
// and JSON-schema-validates the two operator-supplied documents that
// configure a storage space: its descriptor and its initial root ACR.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/joeshaw/envdecode"
	"github.com/relabs-tech/solidstore/core/model"
	"github.com/relabs-tech/solidstore/core/schema"
)

// Config is the environment-decoded configuration for a solidstore-serve
// process.
type Config struct {
	Port int `env:"PORT,default=8080" description:"HTTP port to listen on"`

	Backend        string `env:"BACKEND,default=localfs" description:"object store backend: localfs or s3"`
	LocalFSBaseDir string `env:"LOCALFS_BASE_DIR,optional" description:"base directory for the localfs backend"`
	S3Bucket       string `env:"S3_BUCKET,optional" description:"bucket name for the s3 backend"`
	S3Prefix       string `env:"S3_PREFIX,optional" description:"key prefix within the s3 bucket"`

	StorageRoot string `env:"STORAGE_ROOT,required" description:"absolute URI of the storage space root container"`
	OwnerWebID  string `env:"OWNER_WEBID,required" description:"WebID of the storage space owner"`

	BackdoorTokensJSON string `env:"BACKDOOR_TOKENS_JSON,optional" description:"JSON object mapping bearer token to {webid, roles}, for development/test auth only"`

	LogLevel string `env:"LOG_LEVEL,default=info" description:"logrus level name"`
}

// Decode reads Config from the environment.
func Decode() (*Config, error) {
	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decoding environment configuration: %w", err)
	}
	return cfg, nil
}

// StorageSpaceDescriptorSchemaID and InitialACRSchemaID are the $id values
// the two configuration documents validate against.
const (
	StorageSpaceDescriptorSchemaID = "https://solidstore.example/schemas/storage-space-descriptor.json"
	InitialACRSchemaID             = "https://solidstore.example/schemas/initial-acr.json"
)

const storageSpaceDescriptorSchema = `{
	"$id": "https://solidstore.example/schemas/storage-space-descriptor.json",
	"type": "object",
	"required": ["root", "owner_webid"],
	"properties": {
		"root": {"type": "string"},
		"description_uri": {"type": "string"},
		"owner_webid": {"type": "string"}
	}
}`

const initialACRSchema = `{
	"$id": "https://solidstore.example/schemas/initial-acr.json",
	"type": "object",
	"required": ["content_type", "body"],
	"properties": {
		"content_type": {"type": "string"},
		"body": {"type": "string"}
	}
}`

// NewDocumentValidator returns a schema.Validator that recognizes the
// storage-space descriptor and initial-ACR document schemas.
func NewDocumentValidator() (*schema.Validator, error) {
	return schema.NewValidator([]string{storageSpaceDescriptorSchema, initialACRSchema}, nil)
}

// StorageSpaceDescriptor is the validated shape of the JSON document that
// configures a model.StorageSpace.
type StorageSpaceDescriptor struct {
	Root           string `json:"root"`
	DescriptionURI string `json:"description_uri,omitempty"`
	OwnerWebID     string `json:"owner_webid"`
}

// ParseStorageSpaceDescriptor validates raw against
// StorageSpaceDescriptorSchemaID and decodes it.
func ParseStorageSpaceDescriptor(v *schema.Validator, raw []byte) (StorageSpaceDescriptor, error) {
	if err := v.ValidateString(string(raw), StorageSpaceDescriptorSchemaID); err != nil {
		return StorageSpaceDescriptor{}, fmt.Errorf("storage space descriptor: %w", err)
	}
	var d StorageSpaceDescriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return StorageSpaceDescriptor{}, fmt.Errorf("storage space descriptor: %w", err)
	}
	return d, nil
}

// ToStorageSpace builds a model.StorageSpace from a validated descriptor,
// using the module's default auxiliary-relation policy.
func (d StorageSpaceDescriptor) ToStorageSpace() (model.StorageSpace, error) {
	root, err := model.NormalizeURI(d.Root)
	if err != nil {
		return model.StorageSpace{}, fmt.Errorf("normalizing storage root %q: %w", d.Root, err)
	}
	space := model.StorageSpace{
		Root:       root,
		OwnerWebID: d.OwnerWebID,
		AuxPolicy:  model.DefaultAuxPolicy(),
	}
	if d.DescriptionURI != "" {
		descURI, err := model.NormalizeURI(d.DescriptionURI)
		if err != nil {
			return model.StorageSpace{}, fmt.Errorf("normalizing description uri %q: %w", d.DescriptionURI, err)
		}
		space.DescriptionURI = descURI
	}
	if err := space.Validate(); err != nil {
		return model.StorageSpace{}, err
	}
	return space, nil
}

// InitialACRDocument is the validated shape of the JSON document describing
// the representation to install as a storage space's initial root ACR.
type InitialACRDocument struct {
	ContentType string `json:"content_type"`
	Body        string `json:"body"`
}

// ParseInitialACRDocument validates raw against InitialACRSchemaID and
// decodes it.
func ParseInitialACRDocument(v *schema.Validator, raw []byte) (InitialACRDocument, error) {
	if err := v.ValidateString(string(raw), InitialACRSchemaID); err != nil {
		return InitialACRDocument{}, fmt.Errorf("initial acr document: %w", err)
	}
	var d InitialACRDocument
	if err := json.Unmarshal(raw, &d); err != nil {
		return InitialACRDocument{}, fmt.Errorf("initial acr document: %w", err)
	}
	return d, nil
}

// ToRepresentation builds a model.Representation ready to pass as an
// Update's SetWith from a validated initial-ACR document.
func (d InitialACRDocument) ToRepresentation() model.Representation {
	return model.NewBufferRepresentation(d.ContentType, []byte(d.Body))
}
