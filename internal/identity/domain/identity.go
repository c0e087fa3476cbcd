package domain

import "strings"

const partitionPrefix = "cart_"

// Identity is the resolved account a cart partition belongs to.
type Identity struct {
	Email string
}

// PartitionKey is the storage key holding this account's cart units.
func (i Identity) PartitionKey() string {
	return partitionPrefix + i.Email
}

func (i Identity) IsZero() bool {
	return strings.TrimSpace(i.Email) == ""
}
