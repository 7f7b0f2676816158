package ledger

import (
	"context"
	"fmt"
	"time"

	"trade-journal/internal/database"
)

// Position is the derived view of one still-open lot together with its
// partial-close history
type Position struct {
	TradeID         int64             `json:"trade_id"`
	StrategyID      int64             `json:"strategy_id"`
	StockCode       string            `json:"stock_code"`
	StockName       *string           `json:"stock_name,omitempty"`
	RemainingShares float64           `json:"remaining_shares"`
	OpenedShares    float64           `json:"opened_shares"`
	ClosedShares    float64           `json:"closed_shares"`
	AvgOpenPrice    float64           `json:"avg_open_price"`
	BuyTime         time.Time         `json:"buy_time"`
	CommissionBuy   float64           `json:"commission_buy"`
	StopLossPrice   *float64          `json:"stop_loss_price,omitempty"`
	TakeProfitPrice *float64          `json:"take_profit_price,omitempty"`
	StopLossAlert   bool              `json:"stop_loss_alert"`
	TakeProfitAlert bool              `json:"take_profit_alert"`
	TheoreticalRR   *float64          `json:"theoretical_risk_reward_ratio,omitempty"`
	Note            *string           `json:"note,omitempty"`
	Children        []*database.Trade `json:"partial_closes,omitempty"`
}

// GetPositions derives the open-position view of a strategy: each open
// non-child trade with its partial-close children attached
func (s *Service) GetPositions(ctx context.Context, userID string, strategyID int64) ([]*Position, error) {
	parents, err := s.repo.GetOpenParentTrades(ctx, userID, strategyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load open trades: %w", err)
	}

	positions := make([]*Position, 0, len(parents))
	for _, parent := range parents {
		children, err := s.repo.GetChildren(ctx, parent.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load partial closes: %w", err)
		}

		closedShares := 0.0
		for _, child := range children {
			closedShares += child.Shares
		}

		positions = append(positions, &Position{
			TradeID:         parent.ID,
			StrategyID:      parent.StrategyID,
			StockCode:       parent.StockCode,
			StockName:       parent.StockName,
			RemainingShares: parent.Shares,
			OpenedShares:    parent.Shares + closedShares,
			ClosedShares:    closedShares,
			AvgOpenPrice:    parent.BuyPrice,
			BuyTime:         parent.BuyTime,
			CommissionBuy:   parent.CommissionBuy,
			StopLossPrice:   parent.StopLossPrice,
			TakeProfitPrice: parent.TakeProfitPrice,
			StopLossAlert:   parent.StopLossAlert,
			TakeProfitAlert: parent.TakeProfitAlert,
			TheoreticalRR:   parent.TheoreticalRR,
			Note:            parent.Note,
			Children:        children,
		})
	}
	return positions, nil
}
