package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmcdole/estate/internal/detail"
	"github.com/mmcdole/estate/internal/domain"
	"github.com/mmcdole/estate/internal/listings"
)

func (a *app) dispatch(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "listings":
		return a.runListings(ctx, rest)
	case "locations":
		return a.runLocations(ctx, rest)
	case "show":
		return a.runShow(ctx, rest)
	case "edit":
		return a.withView(ctx, rest, 3, "edit <listing> <field> <value>", a.runEdit)
	case "photos":
		return a.withView(ctx, rest, 2, "photos <listing> <dir>", a.runPhotos)
	case "export":
		return a.withView(ctx, rest, 2, "export <listing> <email>", a.runExport)
	case "note":
		return a.runNote(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// loadListings fetches the collection, falling back to this session's copy
func (a *app) loadListings(ctx context.Context) ([]domain.Listing, error) {
	stop := startSpinner("Loading listings...")
	err := a.state.Load(ctx)
	stop()
	if err == nil {
		return a.state.All(), nil
	}
	if cached, ok := a.state.Cached(); ok && errors.Is(err, domain.ErrServerOffline) {
		fmt.Fprintln(os.Stderr, renderDim("Server offline, showing cached listings."))
		return cached, nil
	}
	return nil, err
}

func (a *app) runListings(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("listings", flag.ContinueOnError)
	var c listings.Criteria
	fs.StringVar(&c.Title, "title", "", "title contains")
	fs.StringVar(&c.Location, "location", "", "location contains")
	fs.StringVar(&c.Street, "street", "", "street contains")
	fs.StringVar(&c.PropertyType, "type", "", "property type (House, Apartment)")
	fs.StringVar(&c.TransactionType, "transaction", "", "transaction type (Sell, Rent)")
	fs.Float64Var(&c.PriceFrom, "price-from", 0, "minimum price")
	fs.Float64Var(&c.PriceTo, "price-to", 0, "maximum price")
	fs.Float64Var(&c.AreaFrom, "area-from", 0, "minimum area")
	fs.Float64Var(&c.AreaTo, "area-to", 0, "maximum area")
	fs.Float64Var(&c.PricePerAreaFrom, "ppa-from", 0, "minimum price per area")
	fs.Float64Var(&c.PricePerAreaTo, "ppa-to", 0, "maximum price per area")
	sortDir := fs.String("sort", "", "sort by price: asc or desc")
	query := fs.String("search", "", "fuzzy title search")
	if err := fs.Parse(args); err != nil {
		return err
	}

	all, err := a.loadListings(ctx)
	if err != nil {
		return err
	}

	result := all
	if !c.IsZero() {
		result = listings.Filter(result, c)
	}

	if strings.TrimSpace(*query) != "" {
		hits := listings.Search(result, *query)
		fmt.Println(renderTitle(fmt.Sprintf("%d matches for %q", len(hits), *query)))
		for _, h := range hits {
			printListingRow(h.Listing, highlight(h.Listing.Title, h.MatchedIndexes))
		}
		return nil
	}

	if *sortDir != "" {
		dir, err := listings.ParseDirection(*sortDir)
		if err != nil {
			return err
		}
		result = listings.Sort(result, dir)
	}

	fmt.Println(renderTitle(fmt.Sprintf("%d of %d listings", len(result), len(all))))
	for _, l := range result {
		printListingRow(l, l.Title)
	}
	return nil
}

func (a *app) runLocations(ctx context.Context, args []string) error {
	all, err := a.loadListings(ctx)
	if err != nil {
		return err
	}
	for _, loc := range listings.SuggestLocations(all, strings.Join(args, " ")) {
		fmt.Println(loc)
	}
	return nil
}

func (a *app) newView() *detail.View {
	return detail.NewView(a.client, a.res, a.state, detail.Options{
		UserID:             a.userID,
		GalleryConcurrency: a.cfg.Gallery.Concurrency,
	}, a.logger)
}

// withView opens the listing named by the first argument in a detail view,
// runs fn and releases the view
func (a *app) withView(ctx context.Context, args []string, want int, usage string,
	fn func(context.Context, *detail.View, []string) error) error {
	if len(args) != want {
		return fmt.Errorf("usage: estate %s", usage)
	}

	view := a.newView()
	defer view.Close()

	stop := startSpinner("Loading listing...")
	err := view.Open(ctx, args[0])
	stop()
	if err != nil {
		return err
	}
	return fn(ctx, view, args[1:])
}

// runShow prints each listing in turn, navigating one detail view between
// them so only the current listing's photos stay materialized
func (a *app) runShow(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("usage: estate show <listing>...")
	}

	view := a.newView()
	defer view.Close()

	for i, id := range ids {
		stop := startSpinner("Loading listing...")
		var err error
		if i == 0 {
			err = view.Open(ctx, id)
		} else {
			err = view.Navigate(ctx, id)
		}
		stop()
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Println()
		}
		printDetail(view)
	}
	return nil
}

func printDetail(view *detail.View) {
	l, _ := view.Listing()

	fmt.Println(renderTitle(l.Title) + "  " + renderBadge(string(l.Status)))
	fmt.Println(renderDim(l.ID))
	fmt.Println()

	for _, f := range view.Editor().Fields() {
		value := fmt.Sprint(f.Display())
		if f.Key == domain.FieldPrice {
			value = renderPrice(l.FormattedPrice())
		}
		fmt.Println(renderLabel(f.Label) + value)
	}
	fmt.Println(renderLabel("Price per area") + fmt.Sprintf("%.2f", l.ComputedPricePerArea()))
	if owner, ok := view.Owner(); ok {
		fmt.Println(renderLabel("Agent") + fmt.Sprintf("%s <%s>", owner.Username, owner.Email))
	}
	fmt.Println(renderLabel("Photos") + fmt.Sprint(len(view.Gallery().Entries())))

	notes := view.Notes().ByListing(l.ID)
	fmt.Println()
	fmt.Println(renderTitle(fmt.Sprintf("Notes (%d)", len(notes))))
	for _, n := range notes {
		when := ""
		if !n.CreatedAt.IsZero() {
			when = n.CreatedAt.Local().Format("2006-01-02 15:04") + " "
		}
		fmt.Printf("%s%s %s\n", renderDim(when), renderAccent(n.ID), n.Text)
	}
}

func (a *app) runEdit(ctx context.Context, view *detail.View, args []string) error {
	key, value := args[0], args[1]
	sent, err := view.EditField(ctx, key, value)
	if err != nil {
		return err
	}
	if !sent {
		fmt.Println(renderDim(key + " unchanged"))
		return nil
	}
	fs, _ := view.Editor().Field(key)
	fmt.Println(renderSuccess(fmt.Sprintf("✓ %s set to %v", fs.Label, fs.Value)))
	return nil
}

func (a *app) runPhotos(ctx context.Context, view *detail.View, args []string) error {
	dir := args[0]
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create photo directory: %w", err)
	}

	entries := view.Gallery().Entries()
	for _, e := range entries {
		p, err := a.res.Open(e.Source)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, e.ImageID+extension(p.ContentType))
		if err := os.WriteFile(path, p.Data, 0644); err != nil {
			return fmt.Errorf("failed to write photo: %w", err)
		}
		fmt.Println(renderDim(path))
	}
	fmt.Println(renderSuccess(fmt.Sprintf("✓ Saved %d photos", len(entries))))
	return nil
}

func (a *app) runExport(ctx context.Context, view *detail.View, args []string) error {
	if err := view.Export(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println(renderSuccess("✓ Listing sent to " + args[0]))
	return nil
}

func (a *app) runNote(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: estate note add|edit|rm ...")
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "add":
		return a.withView(ctx, rest, 2, "note add <listing> <text>",
			func(ctx context.Context, view *detail.View, args []string) error {
				n, err := view.AddNote(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Println(renderSuccess("✓ Added note " + n.ID))
				return nil
			})
	case "edit":
		return a.withView(ctx, rest, 3, "note edit <listing> <note> <text>",
			func(ctx context.Context, view *detail.View, args []string) error {
				if _, err := view.EditNote(ctx, args[0], args[1]); err != nil {
					return err
				}
				fmt.Println(renderSuccess("✓ Updated note " + args[0]))
				return nil
			})
	case "rm":
		return a.withView(ctx, rest, 2, "note rm <listing> <note>",
			func(ctx context.Context, view *detail.View, args []string) error {
				if err := view.DeleteNote(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println(renderSuccess("✓ Deleted note " + args[0]))
				return nil
			})
	default:
		return fmt.Errorf("unknown note command %q", sub)
	}
}

func printListingRow(l domain.Listing, title string) {
	fmt.Printf("%s  %s  %s  %s  %s\n",
		renderDim(l.ID),
		title,
		renderAccent(l.Location),
		renderPrice(l.FormattedPrice()),
		renderDim(fmt.Sprintf("%.0fm² %.0f/m²", l.Area, l.ComputedPricePerArea())),
	)
}

// highlight accents the matched byte positions of title
func highlight(title string, matched []int) string {
	if !styled || len(matched) == 0 || len(strings.ToLower(title)) != len(title) {
		return title
	}
	hit := make(map[int]bool, len(matched))
	for _, i := range matched {
		hit[i] = true
	}
	var b strings.Builder
	for i, r := range title {
		if hit[i] {
			b.WriteString(AccentStyle.Render(string(r)))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func extension(contentType string) string {
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
