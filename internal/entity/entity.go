package entity

// Entity is anything that can be written to the action index.
type Entity interface {
	Slug() string
}
