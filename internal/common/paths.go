package common

import "strings"

// BlobRoot is the top-level prefix every user blob lives under.
const BlobRoot = "users/"

// OwnerPrefix is the blob prefix reserved for ownerID.
func OwnerPrefix(ownerID string) string {
	return BlobRoot + ownerID + "/"
}

// StoragePath is the blob key of a stored file.
func StoragePath(ownerID, storageName string) string {
	return OwnerPrefix(ownerID) + storageName
}

// OwnsPath reports whether p is a direct child of ownerID's prefix.
func OwnsPath(ownerID, p string) bool {
	if ownerID == "" || strings.Contains(ownerID, "/") {
		return false
	}
	name, ok := strings.CutPrefix(p, OwnerPrefix(ownerID))
	return ok && name != "" && name != "." && name != ".." && !strings.Contains(name, "/")
}
