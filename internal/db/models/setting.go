package models

// Setting represents a named runtime state record stored in the
// database, such as the outcome of the last retention run. Values are
// opaque blobs; typed access lives in the controller packages.
type Setting struct {
	ID    uint64 `gorm:"primaryKey"`
	Name  string `gorm:"unique"`
	Value []byte `gorm:"type:blob"`
}
