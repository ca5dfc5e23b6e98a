// Package common holds shared constants for VaultArt components.
package common

// PackageName identifies this service in metrics and logs.
const PackageName = "vaultart"
