package models

import "github.com/google/uuid"

// Variable is an environment entry of a star
type Variable struct {
	ID uuid.UUID `json:"id" db:"id"`

	// Name is the environment variable name and the key in the vars Secret
	Name string `json:"name" db:"name"`

	Value string `json:"value" db:"value"`

	StarID uuid.UUID `json:"star_id" db:"star_id"`
}

// VariableRequest is the request body for creating or updating a variable
type VariableRequest struct {
	Name  string `json:"name" binding:"required,envname,max=128"`
	Value string `json:"value" binding:"max=4096"`
}

// VariableListResponse is the response for listing variables
type VariableListResponse struct {
	Variables []Variable `json:"variables"`
	Total     int        `json:"total"`
}
