package capi

// AppState is the lifecycle state of an application.
type AppState string

// Known application states. DELETED is a client-side terminal marker set after
// a successful delete; the platform itself never reports it.
const (
	AppStateStarted AppState = "STARTED"
	AppStateStopped AppState = "STOPPED"
	AppStateDeleted AppState = "DELETED"
)

// PlatformInstance is a Cloud Foundry deployment target and the root of the
// explored hierarchy.
type PlatformInstance struct {
	Name              string `json:"name"                yaml:"name"                mapstructure:"name"`
	APIAddress        string `json:"api"                 yaml:"api"                 mapstructure:"api"`
	SkipSSLValidation bool   `json:"skip_ssl_validation" yaml:"skip_ssl_validation" mapstructure:"skip_ssl_validation"`
}

// Organization represents a Cloud Foundry organization.
type Organization struct {
	Resource

	Name      string    `json:"name"               yaml:"name"`
	Suspended bool      `json:"suspended"          yaml:"suspended"`
	Metadata  *Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// Platform is the instance the organization was listed from.
	Platform *PlatformInstance `json:"-" yaml:"-"`
}

// Space represents a Cloud Foundry space.
type Space struct {
	Resource

	Name          string             `json:"name"               yaml:"name"`
	Metadata      *Metadata          `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Relationships SpaceRelationships `json:"relationships"      yaml:"relationships"`

	// Organization is the parent the space was listed from.
	Organization *Organization `json:"-" yaml:"-"`
}

// SpaceRelationships represents space relationships.
type SpaceRelationships struct {
	Organization Relationship  `json:"organization"    yaml:"organization"`
	Quota        *Relationship `json:"quota,omitempty" yaml:"quota,omitempty"`
}

// Platform returns the instance the space belongs to, if known.
func (s *Space) Platform() *PlatformInstance {
	if s == nil || s.Organization == nil {
		return nil
	}

	return s.Organization.Platform
}

// App represents a Cloud Foundry application.
type App struct {
	Resource

	Name          string           `json:"name"               yaml:"name"`
	State         AppState         `json:"state"              yaml:"state"`
	Lifecycle     *Lifecycle       `json:"lifecycle,omitempty" yaml:"lifecycle,omitempty"`
	Metadata      *Metadata        `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Relationships AppRelationships `json:"relationships"      yaml:"relationships"`

	// Space is the parent the application was listed from.
	Space *Space `json:"-" yaml:"-"`
}

// AppRelationships represents app relationships.
type AppRelationships struct {
	Space Relationship `json:"space" yaml:"space"`
}

// Lifecycle represents app lifecycle configuration.
type Lifecycle struct {
	Type string                 `json:"type" yaml:"type"`
	Data map[string]interface{} `json:"data" yaml:"data"`
}

// Platform returns the instance the application belongs to, if known.
func (a *App) Platform() *PlatformInstance {
	if a == nil || a.Space == nil {
		return nil
	}

	return a.Space.Platform()
}

// Buildpack represents a Cloud Foundry buildpack.
type Buildpack struct {
	Resource

	Name      string    `json:"name"               yaml:"name"`
	State     string    `json:"state"              yaml:"state"`
	Filename  *string   `json:"filename"           yaml:"filename"`
	Stack     *string   `json:"stack"              yaml:"stack"`
	Position  int       `json:"position"           yaml:"position"`
	Lifecycle string    `json:"lifecycle"          yaml:"lifecycle"`
	Enabled   bool      `json:"enabled"            yaml:"enabled"`
	Locked    bool      `json:"locked"             yaml:"locked"`
	Metadata  *Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Stack represents a Cloud Foundry stack (a pre-built rootfs and associated executables).
type Stack struct {
	Resource

	Name             string    `json:"name"               yaml:"name"`
	Description      string    `json:"description"        yaml:"description"`
	BuildRootfsImage string    `json:"build_rootfs_image" yaml:"build_rootfs_image"`
	RunRootfsImage   string    `json:"run_rootfs_image"   yaml:"run_rootfs_image"`
	Default          bool      `json:"default"            yaml:"default"`
	Metadata         *Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ServiceOffering represents a service offering advertised in the marketplace.
type ServiceOffering struct {
	Resource

	Name          string                       `json:"name"                    yaml:"name"`
	Description   string                       `json:"description"             yaml:"description"`
	Available     bool                         `json:"available"               yaml:"available"`
	Tags          []string                     `json:"tags,omitempty"          yaml:"tags,omitempty"`
	Shareable     bool                         `json:"shareable"               yaml:"shareable"`
	Relationships ServiceOfferingRelationships `json:"relationships"           yaml:"relationships"`
	Metadata      *Metadata                    `json:"metadata,omitempty"      yaml:"metadata,omitempty"`

	// BrokerName is resolved from the included service brokers.
	BrokerName string `json:"broker_name,omitempty" yaml:"broker_name,omitempty"`
}

// ServiceOfferingRelationships represents service offering relationships.
type ServiceOfferingRelationships struct {
	ServiceBroker Relationship `json:"service_broker" yaml:"service_broker"`
}
