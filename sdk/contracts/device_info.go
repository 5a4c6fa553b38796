package contracts

// DeviceInfo contains information about a MIDI endpoint.
type DeviceInfo struct {
	ID           int    // Index accepted by SelectDevice or SelectOutput.
	Name         string // Endpoint name.
	Manufacturer string // Device manufacturer.
	EntityName   string // Name of the entity to which the endpoint belongs.
}
