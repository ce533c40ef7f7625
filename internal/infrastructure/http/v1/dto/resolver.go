package dto

// ResolveQuery names either a role code or a free-text hint.
type ResolveQuery struct {
	Role string `form:"role" binding:"required_without=Hint,omitempty,role"`
	Hint string `form:"hint" binding:"required_without=Role,max=100"`
}

// MappingRequest pins a role to an item.
type MappingRequest struct {
	ItemID string `json:"itemId" binding:"required,uuid"`
}
