package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/safescan/internal/apiclient"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/appstate"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safescan/internal/subscription"
)

func registerCommands(r *CommandRegistry) {
	r.Register(&Command{
		Name:        "register",
		Description: "Create an account and start a session",
		Usage:       "safescan register -email <email> -password <password>",
		Run:         credentialsCommand("register"),
	})
	r.Register(&Command{
		Name:        "login",
		Description: "Start a session",
		Usage:       "safescan login -email <email> -password <password>",
		Run:         credentialsCommand("login"),
	})
	r.Register(&Command{
		Name:        "logout",
		Description: "End the session on this device",
		Usage:       "safescan logout [-forget]",
		Run:         logoutCommand,
	})
	r.Register(&Command{
		Name:        "status",
		Description: "Show entitlement, scan allowance and saved items",
		Usage:       "safescan status [-offline]",
		Run:         statusCommand,
	})
	r.Register(&Command{
		Name:        "plans",
		Description: "List subscription plans",
		Usage:       "safescan plans",
		Run:         plansCommand,
	})
	r.Register(&Command{
		Name:        "purchase",
		Description: "Buy a subscription plan",
		Usage:       "safescan purchase [-plan <id>] -method card|apple_pay|google_pay [flags]",
		Examples: []string{
			"safescan purchase -method apple_pay -token tok_123",
			"safescan purchase -plan pro_monthly -method card -last4 4242 -brand visa -exp 12/2030",
		},
		Run: purchaseCommand,
	})
	r.Register(&Command{
		Name:        "scan",
		Description: "Look up a product by barcode",
		Usage:       "safescan scan [-save] <barcode>",
		Examples:    []string{"safescan scan 5012345678900", "safescan scan -save 5012345678900"},
		Run:         scanCommand,
	})
	r.Register(&Command{
		Name:        "saved",
		Description: "List saved products",
		Usage:       "safescan saved",
		Run:         savedCommand,
	})
	r.Register(&Command{
		Name:        "remove",
		Description: "Remove a saved product",
		Usage:       "safescan remove <product-id>",
		Run:         removeCommand,
	})
	r.Register(&Command{
		Name:        "sync",
		Description: "Push saved products to the server now",
		Usage:       "safescan sync",
		Run:         syncCommand,
	})
	r.Register(&Command{
		Name:        "prefs",
		Description: "Show or update dietary preferences",
		Usage:       "safescan prefs [-allergies a,b] [-diet x,y] [-low-fodmap=true|false]",
		Examples:    []string{"safescan prefs", "safescan prefs -allergies peanut,sesame -low-fodmap"},
		Run:         prefsCommand,
	})
}

func credentialsCommand(name string) func(context.Context, *Env, []string) error {
	return func(ctx context.Context, env *Env, args []string) error {
		cmd := &Command{Name: name, Usage: "safescan " + name + " -email <email> -password <password>"}
		fs := cmd.NewFlagSet(env.Out)
		email := fs.String("email", "", "Account email")
		password := fs.String("password", "", "Account password")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *email == "" || *password == "" {
			return errors.New("-email and -password are required")
		}

		var err error
		if name == "register" {
			err = env.App.Register(ctx, *email, *password)
		} else {
			err = env.App.Login(ctx, *email, *password)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(env.Out, "Logged in as %s\n", *email)
		return nil
	}
}

func logoutCommand(ctx context.Context, env *Env, args []string) error {
	cmd := &Command{Name: "logout", Usage: "safescan logout [-forget]"}
	fs := cmd.NewFlagSet(env.Out)
	forget := fs.Bool("forget", false, "Also erase all data stored on this device")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *forget {
		if err := env.App.Forget(ctx); err != nil {
			return err
		}
		fmt.Fprintln(env.Out, "Logged out and erased device data")
		return nil
	}
	if err := env.App.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(env.Out, "Logged out")
	return nil
}

func statusCommand(ctx context.Context, env *Env, args []string) error {
	cmd := &Command{Name: "status", Usage: "safescan status [-offline]"}
	fs := cmd.NewFlagSet(env.Out)
	offline := fs.Bool("offline", false, "Skip reconciliation with the server")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app := env.App
	if !*offline && app.LoggedIn() {
		if err := app.Subscription.SyncWithAPI(ctx); err != nil {
			reason := apiclient.CodeOf(err)
			if apiclient.IsNetwork(err) {
				reason = "offline"
			}
			fmt.Fprintf(env.Out, "Showing cached state (%s)\n", reason)
		}
	}

	state := app.Subscription.State()
	if s, ok := app.CurrentSession(ctx); ok {
		fmt.Fprintf(env.Out, "Account:      %s\n", s.Email)
	} else {
		fmt.Fprintln(env.Out, "Account:      not logged in")
	}
	fmt.Fprintf(env.Out, "Status:       %s\n", state.Status)
	if state.Plan != nil {
		fmt.Fprintf(env.Out, "Plan:         %s\n", state.Plan.Name)
	}
	if state.ExpiresAt != nil {
		fmt.Fprintf(env.Out, "Expires:      %s\n", state.ExpiresAt.Local().Format(time.RFC1123))
	}
	if state.LastVerifiedAt != nil {
		fmt.Fprintf(env.Out, "Verified:     %s\n", state.LastVerifiedAt.Local().Format(time.RFC1123))
	}

	if remaining := app.ScansRemaining(ctx); remaining == subscription.UnlimitedScans {
		fmt.Fprintln(env.Out, "Scans left:   unlimited")
	} else {
		fmt.Fprintf(env.Out, "Scans left:   %d of %d today\n", remaining, app.Quota.DailyLimit())
	}

	if limit := app.Subscription.SavedItemsLimit(); limit == subscription.UnlimitedSavedItems {
		fmt.Fprintf(env.Out, "Saved items:  %d\n", app.SavedItems.Count())
	} else {
		fmt.Fprintf(env.Out, "Saved items:  %d of %d\n", app.SavedItems.Count(), limit)
	}
	if last := app.SavedItems.LastSyncedAt(); last != nil {
		fmt.Fprintf(env.Out, "Last change:  %s\n", last.Local().Format(time.RFC1123))
	}
	return nil
}

func plansCommand(ctx context.Context, env *Env, _ []string) error {
	if err := env.App.Subscription.LoadPlans(ctx); err != nil {
		return err
	}
	def, _ := env.App.Subscription.DefaultPlan()
	for _, p := range env.App.Subscription.Plans().Plans {
		marker := " "
		if p.ID == def.ID {
			marker = "*"
		}
		fmt.Fprintf(env.Out, "%s %-14s %-14s %s/%s\n", marker, p.ID, p.Name, formatPrice(p), p.Interval)
		for _, f := range p.Features {
			fmt.Fprintf(env.Out, "      - %s\n", f)
		}
	}
	return nil
}

func purchaseCommand(ctx context.Context, env *Env, args []string) error {
	cmd := &Command{Name: "purchase", Usage: "safescan purchase [-plan <id>] -method <method> [flags]"}
	fs := cmd.NewFlagSet(env.Out)
	planID := fs.String("plan", "", "Plan id (defaults to the highlighted plan)")
	method := fs.String("method", dto.PaymentApplePay, "Payment method: card, apple_pay, google_pay")
	token := fs.String("token", "", "Wallet payment token")
	last4 := fs.String("last4", "", "Card last four digits")
	brand := fs.String("brand", "", "Card brand")
	exp := fs.String("exp", "", "Card expiry as MM/YYYY")
	if err := fs.Parse(args); err != nil {
		return err
	}

	app := env.App
	if err := app.Subscription.LoadPlans(ctx); err != nil {
		return err
	}
	if *planID == "" {
		def, ok := app.Subscription.DefaultPlan()
		if !ok {
			return errors.New("no plans available")
		}
		*planID = def.ID
	}

	req := dto.PurchaseRequest{PlanID: *planID, PaymentMethod: *method, PaymentToken: *token}
	if *method == dto.PaymentCard {
		card, err := parseCard(*last4, *brand, *exp)
		if err != nil {
			return err
		}
		req.CardDetails = card
	}

	resp, err := app.Purchase(ctx, req)
	if err != nil {
		var apiErr *apiclient.Error
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return fmt.Errorf("payment failed: %s", apiErr.Message)
		}
		return err
	}
	fmt.Fprintf(env.Out, "Subscribed to %s\n", *planID)
	if resp.Subscription.ExpiresAt != nil {
		fmt.Fprintf(env.Out, "Renews %s\n", resp.Subscription.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

func scanCommand(ctx context.Context, env *Env, args []string) error {
	cmd := &Command{Name: "scan", Usage: "safescan scan [-save] <barcode>"}
	fs := cmd.NewFlagSet(env.Out)
	save := fs.Bool("save", false, "Save the product after scanning")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("exactly one barcode is required")
	}

	app := env.App
	res, err := app.ScanBarcode(ctx, fs.Arg(0))
	switch {
	case errors.Is(err, appstate.ErrScanLimitReached):
		fmt.Fprintf(env.Out, "You have used all %d free scans today. Upgrade to Pro for unlimited scans.\n", app.Quota.DailyLimit())
		return nil
	case errors.Is(err, apiclient.ErrProductNotFound):
		fmt.Fprintln(env.Out, "Product not found")
		return nil
	case err != nil:
		return err
	}

	p := res.Product
	fmt.Fprintf(env.Out, "%s (id %d)\n", p.Name, p.ID)
	if p.Brand != "" {
		fmt.Fprintf(env.Out, "Brand:        %s\n", p.Brand)
	}
	if p.SafetyRating != "" {
		fmt.Fprintf(env.Out, "Safety:       %s\n", p.SafetyRating)
	}
	if p.FodmapLevel != "" {
		fmt.Fprintf(env.Out, "FODMAP:       %s\n", p.FodmapLevel)
	}
	if len(p.Ingredients) > 0 {
		fmt.Fprintf(env.Out, "Ingredients:  %s\n", strings.Join(p.Ingredients, ", "))
	}
	if hits := matchAllergies(app.Preferences(ctx), p); len(hits) > 0 {
		fmt.Fprintf(env.Out, "WARNING: contains %s\n", strings.Join(hits, ", "))
	}
	if res.Remaining != subscription.UnlimitedScans {
		fmt.Fprintf(env.Out, "Scans left today: %d\n", max(0, res.Remaining))
	}

	if *save {
		if !app.SavedItems.SaveProduct(ctx, p) {
			fmt.Fprintf(env.Out, "Saved items are full (%d). Upgrade to Pro to save more.\n", app.Subscription.SavedItemsLimit())
			return nil
		}
		fmt.Fprintln(env.Out, "Saved")
	}
	return nil
}

func savedCommand(_ context.Context, env *Env, _ []string) error {
	items := env.App.SavedItems.Items()
	if len(items) == 0 {
		fmt.Fprintln(env.Out, "No saved products")
		return nil
	}
	for _, it := range items {
		fmt.Fprintf(env.Out, "%6d  %-30s %s\n", it.ID, it.Product.Name, it.SavedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func removeCommand(ctx context.Context, env *Env, args []string) error {
	if len(args) != 1 {
		return errors.New("exactly one product id is required")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid product id %q", args[0])
	}
	if !env.App.SavedItems.IsSaved(id) {
		fmt.Fprintf(env.Out, "Product %d is not saved\n", id)
		return nil
	}
	env.App.SavedItems.RemoveProduct(ctx, id)
	fmt.Fprintf(env.Out, "Removed %d\n", id)
	return nil
}

func syncCommand(ctx context.Context, env *Env, _ []string) error {
	if !env.App.LoggedIn() {
		return appstate.ErrNotLoggedIn
	}
	if err := env.App.SavedItems.SyncWithAPI(ctx); err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "Synced %d saved products\n", env.App.SavedItems.Count())
	return nil
}

func prefsCommand(ctx context.Context, env *Env, args []string) error {
	cmd := &Command{Name: "prefs", Usage: "safescan prefs [flags]"}
	fs := cmd.NewFlagSet(env.Out)
	allergies := fs.String("allergies", "", "Comma-separated allergies")
	diet := fs.String("diet", "", "Comma-separated dietary restrictions")
	lowFodmap := fs.Bool("low-fodmap", false, "Follow a low-FODMAP diet")
	if err := fs.Parse(args); err != nil {
		return err
	}

	prefs := env.App.Preferences(ctx)
	changed := false
	fs.Visit(func(f *flag.Flag) {
		changed = true
		switch f.Name {
		case "allergies":
			prefs.Allergies = splitList(*allergies)
		case "diet":
			prefs.DietaryRestrictions = splitList(*diet)
		case "low-fodmap":
			prefs.LowFodmap = *lowFodmap
		}
	})
	if changed {
		if err := env.App.SavePreferences(ctx, prefs); err != nil {
			return err
		}
	}

	fmt.Fprintf(env.Out, "Allergies:    %s\n", orNone(prefs.Allergies))
	fmt.Fprintf(env.Out, "Diet:         %s\n", orNone(prefs.DietaryRestrictions))
	fmt.Fprintf(env.Out, "Low FODMAP:   %t\n", prefs.LowFodmap)
	return nil
}

func parseCard(last4, brand, exp string) (*dto.CardDetails, error) {
	if len(last4) != 4 {
		return nil, errors.New("-last4 must be four digits")
	}
	card := &dto.CardDetails{Last4: last4, Brand: brand}
	if exp != "" {
		month, year, ok := strings.Cut(exp, "/")
		m, errM := strconv.Atoi(month)
		y, errY := strconv.Atoi(year)
		if !ok || errM != nil || errY != nil || m < 1 || m > 12 {
			return nil, fmt.Errorf("invalid -exp %q, want MM/YYYY", exp)
		}
		card.ExpMonth, card.ExpYear = m, y
	}
	return card, nil
}

func matchAllergies(prefs appstate.Preferences, p dto.Product) []string {
	var hits []string
	for _, allergy := range prefs.Allergies {
		for _, a := range p.Allergens {
			if strings.EqualFold(allergy, a) {
				hits = append(hits, a)
				break
			}
		}
	}
	return hits
}

func formatPrice(p dto.Plan) string {
	return fmt.Sprintf("%d.%02d %s", p.PriceCents/100, p.PriceCents%100, p.Currency)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func orNone(list []string) string {
	if len(list) == 0 {
		return "none"
	}
	return strings.Join(list, ", ")
}
