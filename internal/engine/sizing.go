package engine

// PositionSize returns how many units fit in one slot's share of the bank,
// capped by the item's 4-hour buy limit.
func PositionSize(bank int64, slots int, buyLimit, buyPrice int64) int64 {
	if slots < 1 {
		slots = 1
	}
	if bank <= 0 || buyLimit <= 0 || buyPrice <= 0 {
		return 0
	}
	perSlot := bank / int64(slots)
	qty := perSlot / buyPrice
	if qty > buyLimit {
		qty = buyLimit
	}
	return qty
}
