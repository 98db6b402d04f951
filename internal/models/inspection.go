// Package models provides data model definitions for the inspection service tool.
package models

// Device is one fiscal printer examined during an inspection.
type Device struct {
	SerialNumber     string `json:"serialNumber"`
	IsWorking        bool   `json:"isWorking"`
	IssueDescription string `json:"issueDescription,omitempty"`
	TakenToService   bool   `json:"takenToService,omitempty"`
	Timestamp        int64  `json:"timestamp"`
}

// Inspection is one completed field inspection, archived locally.
// Signatures are base64 data URLs captured on the device.
type Inspection struct {
	ID                  int64    `json:"id"`
	ClientName          string   `json:"clientName"`
	ClientNIP           string   `json:"clientNip"`
	ClientEmail         string   `json:"clientEmail"`
	Devices             []Device `json:"devices"`
	ServicemanSignature string   `json:"servicemanSignature,omitempty"`
	ClientSignature     string   `json:"clientSignature,omitempty"`
	Location            string   `json:"location,omitempty"`
	DeviceModel         string   `json:"deviceModel,omitempty"`
	InspectionType      string   `json:"inspectionType,omitempty"` // annual or biennial
	CompletedAt         string   `json:"completedAt"`              // ISO 8601
	Timestamp           int64    `json:"timestamp"`                // milliseconds, for sorting
	NextInspectionDate  string   `json:"nextInspectionDate,omitempty"` // YYYY-MM-DD
	ReminderSent        bool     `json:"reminderSent,omitempty"`
}

// Collection returns the store collection name for Inspection.
func (Inspection) Collection() string {
	return "inspections"
}
