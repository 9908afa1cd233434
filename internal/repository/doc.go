// Package repository models one managed working copy and the git and install
// steps run against it, reporting progress through a message sink.
package repository
