package relay

type CoinBundle struct {
	Key   string
	Coins int
	Bonus int
	Price float64
}

type Plan struct {
	Key       string
	Name      string
	Price     float64
	Period    string
	Recurring bool
}

// Catalog resolves product keys to prices. Prices live outside this
// package; StaticCatalog is a fixed table for tools and tests.
type Catalog interface {
	CoinBundle(key string) (CoinBundle, bool)
	Plan(key string) (Plan, bool)
	UnlimitedCalls(period string) (Plan, bool)
}

type StaticCatalog struct {
	Bundles   map[string]CoinBundle
	Plans     map[string]Plan
	Unlimited map[string]Plan
}

func (c StaticCatalog) CoinBundle(key string) (CoinBundle, bool) {
	b, ok := c.Bundles[key]
	return b, ok
}

func (c StaticCatalog) Plan(key string) (Plan, bool) {
	p, ok := c.Plans[key]
	return p, ok
}

func (c StaticCatalog) UnlimitedCalls(period string) (Plan, bool) {
	p, ok := c.Unlimited[period]
	return p, ok
}

func DefaultCatalog() StaticCatalog {
	return StaticCatalog{
		Bundles: map[string]CoinBundle{
			"coins_100":  {Key: "coins_100", Coins: 100, Price: 99},
			"coins_500":  {Key: "coins_500", Coins: 500, Bonus: 50, Price: 449},
			"coins_1200": {Key: "coins_1200", Coins: 1200, Bonus: 200, Price: 999},
		},
		Plans: map[string]Plan{
			"basic_monthly":   {Key: "basic_monthly", Name: "Basic", Price: 199, Period: "monthly", Recurring: true},
			"premium_monthly": {Key: "premium_monthly", Name: "Premium", Price: 499, Period: "monthly", Recurring: true},
			"premium_yearly":  {Key: "premium_yearly", Name: "Premium", Price: 4999, Period: "yearly", Recurring: true},
		},
		Unlimited: map[string]Plan{
			"weekly":  {Key: "unlimited_weekly", Name: "Unlimited Calls", Price: 149, Period: "weekly"},
			"monthly": {Key: "unlimited_monthly", Name: "Unlimited Calls", Price: 499, Period: "monthly", Recurring: true},
		},
	}
}
