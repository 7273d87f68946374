package banksdk

import "context"

// DashboardStats returns the bank-wide aggregates. Admin only.
func (c *SDKClient) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	return getJSON[DashboardStats](ctx, c, "/dashboard/stats", nil)
}
