// internal/workers/lending/send-offer-notification/models.go
package sendoffernotification

type Input struct {
	ApplicationID string `json:"applicationId"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Type           string   `json:"notificationType"`
	Status         string   `json:"notificationStatus"`
	Channels       []string `json:"channels"`
	FailedChannels []string `json:"failedChannels,omitempty"`
	OfferCount     int      `json:"offerCount"`
	SentAt         string   `json:"sentAt"`
}
