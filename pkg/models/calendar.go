package models

type Event struct {
	ID          string
	Title       string
	Description string
	Start       string
	End         string
	Created     string
	Updated     string
	Status      string
}
