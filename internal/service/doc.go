// Package service implements the announcement pipeline of announcarr.
//
// Classifier decides which snapshot items qualify for notification,
// Aggregator buffers episodes per show until their window elapses, and
// Announcer turns classified items and flushed groups into outbound
// announcements. All three are free of network dependencies and are tested
// against in-memory fakes.
package service
