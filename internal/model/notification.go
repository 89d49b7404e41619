package model

import (
	"slices"
	"strings"
)

// NotificationType drives presentation only.
type NotificationType string

const (
	NotifyInfo    NotificationType = "info"
	NotifySuccess NotificationType = "success"
	NotifyWarning NotificationType = "warning"
	NotifyUrgent  NotificationType = "urgent"
)

// Notification is a durable user-facing notification. ID is derived from
// the fact it represents so regenerating it is a no-op. Message may carry
// HTML; it is opaque at this layer. Timestamp is in Unix milliseconds.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Timestamp int64            `json:"timestamp"`
}

// SortNotifications orders newest first, ties broken by id.
func SortNotifications(ns []Notification) {
	slices.SortStableFunc(ns, func(a, b Notification) int {
		if a.Timestamp != b.Timestamp {
			if a.Timestamp > b.Timestamp {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
}
