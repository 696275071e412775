package deviation

// ConversationRecord is one question/answer exchange of an interaction,
// appended to the conversation log and never mutated.
type ConversationRecord struct {
	ConversationID string `json:"conversation_id"`
	Origin         string `json:"origin"`
	Destination    string `json:"destination"`
	AnomalyTime    string `json:"anomaly_time"`
	Question       string `json:"question"`
	Answer         string `json:"answer"`
}

// RouteInfo is the driver/truck context joined from the route table, used to
// personalize the opening prompt.
type RouteInfo struct {
	TruckNumber   string `json:"truck_number"`
	Driver        string `json:"driver"`
	DepartureTime string `json:"departure_time"`
	ArrivalTime   string `json:"arrival_time"`
}
