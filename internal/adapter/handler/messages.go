package handler

import "github.com/rl1809/smart-inventory/internal/core/domain"

type MessageType string

// Client-to-server message types.
const (
	MsgRegisterDetector MessageType = "register_detector"
	MsgDetectItem       MessageType = "detect_item"
	MsgManualReplace    MessageType = "manual_replace"
	MsgCleanZero        MessageType = "clean_zero"
	MsgSmartReset       MessageType = "smart_reset"
)

// Server-to-client message types.
const (
	MsgSnapshot       MessageType = "snapshot"
	MsgRecords        MessageType = "records"
	MsgHistory        MessageType = "history"
	MsgDetectorStatus MessageType = "detector_status"
	MsgRequestResync  MessageType = "request_resync"
)

// Message is the JSON envelope on the realtime channel. Only the fields
// relevant to the type are populated.
type Message struct {
	Type              MessageType              `json:"type"`
	Event             *domain.DetectionEvent   `json:"event,omitempty"`
	Records           []domain.InventoryRecord `json:"records,omitempty"`
	History           []domain.HistoryEntry    `json:"history,omitempty"`
	DetectorConnected *bool                    `json:"detectorConnected,omitempty"`
}
