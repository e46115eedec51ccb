// Package textutil builds object-storage key segments from run metadata and
// artifact file names.
package textutil
