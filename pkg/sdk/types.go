package sdk

const (
	PowerStart = "start"
	PowerStop  = "stop"
)

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	UserID  any    `json:"user_id,omitempty"`
}

type PowerRequest struct {
	Action string `json:"action"`
}

type DeployRequest struct {
	GameID string            `json:"game_id"`
	Config map[string]string `json:"config"`
}

// Ack is the acknowledgement the backend returns for power and deploy
// actions. Fields are whatever the backend chose to echo.
type Ack struct {
	Result      string `json:"result,omitempty"`
	Status      string `json:"status,omitempty"`
	ContainerID string `json:"container_id,omitempty"`
}

type CheckoutRequest struct {
	PackageID string `json:"package_id"`
	Provider  string `json:"provider"`
}

type CheckoutSession struct {
	URL string `json:"url,omitempty"`
}

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusUnknown = "unknown"
)

type ServerSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// ServerDetail carries live usage. CPU, RAM and Players are only
// meaningful while the server is online; Usage hides them otherwise.
type ServerDetail struct {
	ServerSummary
	CPU     *float64 `json:"cpu,omitempty"`
	RAM     *float64 `json:"ram,omitempty"`
	Players *int     `json:"players,omitempty"`
}

type ServerUsage struct {
	CPU     float64
	RAM     float64
	Players int
}

func (d ServerDetail) Online() bool {
	return d.Status == StatusOnline
}

func (d ServerDetail) Usage() (ServerUsage, bool) {
	if !d.Online() {
		return ServerUsage{}, false
	}
	var u ServerUsage
	if d.CPU != nil {
		u.CPU = *d.CPU
	}
	if d.RAM != nil {
		u.RAM = *d.RAM
	}
	if d.Players != nil {
		u.Players = *d.Players
	}
	return u, true
}

type UserProfile struct {
	Username string  `json:"username"`
	Credits  float64 `json:"credits"`
}

// DeploymentRequest names a catalog template and its settings.
type DeploymentRequest struct {
	TemplateID string
	Config     map[string]string
}

// CredentialStore durably holds at most one opaque bearer token.
type CredentialStore interface {
	GetCredential() (string, bool, error)
	SaveCredential(token string) error
	DeleteCredential() error
}
