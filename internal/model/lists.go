package model

// ListItem is the attorney summary kept in a user list.
type ListItem struct {
	AttorneyID  string  `json:"attorney_id" validate:"required,max=256"`
	FullName    string  `json:"full_name" validate:"required,max=512"`
	Title       string  `json:"title,omitempty" validate:"max=512"`
	FirmName    string  `json:"firm_name,omitempty" validate:"max=512"`
	OfficeCity  string  `json:"office_city,omitempty" validate:"max=256"`
	HeadshotURL *string `json:"headshot_url,omitempty" validate:"omitempty,url"`
}

// UserList is a named, ordered collection of attorneys owned by one user key.
type UserList struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Items []ListItem `json:"items"`
}

// ListNameRequest is the body of create and rename calls.
type ListNameRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}
