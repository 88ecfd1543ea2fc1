// Package gorm provides GORM-based implementations of the store interfaces
// defined in the parent store package.
package gorm
