package models

// PlatformType is the classification label the platform service stamps on every platform record.
const PlatformType = "platform"

// Platform is the wire shape of a platform record. ID is assigned by the service on creation.
type Platform struct {
	ID           string `json:"ID"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Type         string `json:"type"`
}

// NameRequest is the body of get-platform-by-name.
type NameRequest struct {
	Name string `json:"name"`
}

// IDRequest is the body of get-platform-by-id and delete-platform.
type IDRequest struct {
	ID string `json:"id"`
}

// AddPlatformRequest is the body of add-platform. Type and ID are assigned server-side.
type AddPlatformRequest struct {
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
}

// UpdatePlatformRequest is the body of update-platform, keyed on ID.
type UpdatePlatformRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
}

// DeleteResponse is returned by delete-platform. Deleted is set when a record was removed.
type DeleteResponse struct {
	Message string    `json:"message"`
	Deleted *Platform `json:"deleted,omitempty"`
}
