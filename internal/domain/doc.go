// Package domain defines the core business entities and interfaces for announcarr.
//
// This package contains the domain models (LibraryItem, ProcessedRecord,
// PendingGroup, Announcement) and the collaborator interfaces for the media
// server and the chat platform. All interfaces accept context for
// cancellation and timeout support.
package domain
