package domain

import "time"

// Identity is the signed-in principal carried by tokens and auth events.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

type User struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CPF       string    `json:"cpf"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
