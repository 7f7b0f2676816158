package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"trade-journal/internal/database"
)

// AlertData fills the alert email template
type AlertData struct {
	StockCode   string
	StockName   string
	Direction   string
	Price       float64
	TargetPrice float64
	TriggeredAt time.Time
}

var alertTemplate = template.Must(template.New("alert").Parse(`
<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: {{.HeaderColor}}; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
        .content { background-color: #f9fafb; padding: 30px; border-radius: 0 0 5px 5px; }
        .price { font-size: 28px; font-weight: bold; color: {{.HeaderColor}}; text-align: center; margin: 20px 0; }
        .detail { margin: 8px 0; }
        .footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{.Title}}</h1>
        </div>
        <div class="content">
            <p>{{.Instrument}} has crossed your {{.DirectionLabel}} level.</p>
            <div class="price">{{.Price}}</div>
            <div class="detail"><strong>Target:</strong> {{.Target}}</div>
            <div class="detail"><strong>Triggered:</strong> {{.Time}}</div>
            <p>Review the position in your journal and act as needed.</p>
        </div>
        <div class="footer">
            <p>Trade Journal price alerts. Toggle them off in your profile settings.</p>
        </div>
    </div>
</body>
</html>
`))

type alertTemplateData struct {
	Title          string
	HeaderColor    string
	Instrument     string
	DirectionLabel string
	Price          string
	Target         string
	Time           string
}

// SendAlertEmail renders and delivers one price alert
func (s *Service) SendAlertEmail(ctx context.Context, to string, data AlertData) error {
	instrument := data.StockCode
	if data.StockName != "" {
		instrument = fmt.Sprintf("%s (%s)", data.StockName, data.StockCode)
	}

	td := alertTemplateData{
		Instrument: instrument,
		Price:      fmt.Sprintf("%.2f", data.Price),
		Target:     fmt.Sprintf("%.2f", data.TargetPrice),
		Time:       data.TriggeredAt.Format("2006-01-02 15:04:05"),
	}

	var subject string
	switch data.Direction {
	case database.DirectionTakeProfit:
		td.Title = "Take-Profit Alert"
		td.HeaderColor = "#16A34A"
		td.DirectionLabel = "take-profit"
		subject = fmt.Sprintf("Take-profit hit: %s @ %.2f", data.StockCode, data.Price)
	default:
		td.Title = "Stop-Loss Alert"
		td.HeaderColor = "#DC2626"
		td.DirectionLabel = "stop-loss"
		subject = fmt.Sprintf("Stop-loss hit: %s @ %.2f", data.StockCode, data.Price)
	}

	var body bytes.Buffer
	if err := alertTemplate.Execute(&body, td); err != nil {
		return fmt.Errorf("failed to render alert email: %w", err)
	}
	return s.Send(ctx, to, subject, body.String())
}
