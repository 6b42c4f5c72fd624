// Package registryapi exposes a read-mostly HTTP JSON surface over an mcpreg
// registry so hosting applications and UIs can inspect connected servers,
// browse cached tool descriptors, trigger refreshes, and search the tool
// index without linking against the library directly.
package registryapi
