package a2a

// Card is the static capability-description document served from an agent's
// discovery endpoint. It is built once at registration and served verbatim.
type Card struct {
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	Version      string                `json:"version"`
	Capabilities map[string]Capability `json:"capabilities"`
	Endpoint     string                `json:"endpoint"`
	Protocol     string                `json:"protocol"`
	Transport    string                `json:"transport"`
}

// Capability describes a single method an agent exposes.
type Capability struct {
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Returns     map[string]any `json:"returns,omitempty"`
}

// NewCard builds a Card with the protocol fields filled in.
func NewCard(name, description, endpoint string, caps map[string]Capability) Card {
	return Card{
		Name:         name,
		Description:  description,
		Version:      "1.0.0",
		Capabilities: caps,
		Endpoint:     endpoint,
		Protocol:     "A2A",
		Transport:    "JSON-RPC 2.0 over HTTP",
	}
}
