package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/shelf/internal/library"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

const dateLayout = "2006-01-02"

// bookView is the CLI rendering of a BookInfo.
type bookView struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Subtitle      string     `json:"subtitle,omitempty"`
	Authors       []string   `json:"authors,omitempty"`
	Categories    []string   `json:"categories,omitempty"`
	Publisher     string     `json:"publisher,omitempty"`
	PublishedDate string     `json:"published_date,omitempty"`
	Language      string     `json:"language,omitempty"`
	ISBN10        string     `json:"isbn10,omitempty"`
	ISBN13        string     `json:"isbn13,omitempty"`
	PageCount     *int64     `json:"page_count,omitempty"`
	Series        string     `json:"series,omitempty"`
	Number        *int64     `json:"number,omitempty"`
	Location      string     `json:"location,omitempty"`
	IsRead        bool       `json:"is_read"`
	IsFavourite   bool       `json:"is_favourite"`
	LoanedTo      string     `json:"loaned_to,omitempty"`
	LoanDate      *time.Time `json:"loan_date,omitempty"`
}

func viewOf(b *types.BookInfo) bookView {
	v := bookView{
		Title:         str(b.Title),
		Subtitle:      str(b.Subtitle),
		Authors:       b.AuthorNames(),
		PublishedDate: str(b.PublishedDate),
		Language:      str(b.Language),
		ISBN10:        str(b.ISBN10),
		ISBN13:        str(b.ISBN13),
		PageCount:     b.PageCount,
		Number:        b.Number,
		IsRead:        b.IsRead != nil && *b.IsRead,
		IsFavourite:   b.IsFavourite != nil && *b.IsFavourite,
		LoanedTo:      str(b.LoanedTo),
		LoanDate:      b.LoanDate,
	}
	if b.ID != nil {
		v.ID = *b.ID
	}
	for _, c := range b.Categories {
		if c != nil && c.Name != nil {
			v.Categories = append(v.Categories, *c.Name)
		}
	}
	if b.Publisher != nil {
		v.Publisher = str(b.Publisher.Name)
	}
	if b.Series != nil {
		v.Series = str(b.Series.Name)
	}
	if b.Location != nil {
		v.Location = str(b.Location.Name)
	}
	return v
}

func viewsOf(books []*types.BookInfo) []bookView {
	views := make([]bookView, len(books))
	for i, b := range books {
		views[i] = viewOf(b)
	}
	return views
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func newBookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Add, show and change books",
	}
	cmd.AddCommand(
		newBookAddCmd(a),
		newBookGetCmd(a),
		newBookListCmd(a),
		newBookSearchCmd(a),
		newBookDeleteCmd(a),
		newBookToggleCmd(a, "read", "Toggle the read flag", (*library.Service).ToggleRead),
		newBookToggleCmd(a, "favourite", "Toggle the favourite flag", (*library.Service).ToggleFavourite),
		newBookLoanCmd(a),
		newBookReturnCmd(a),
	)
	return cmd
}

type bookAddFlags struct {
	title, subtitle, language   string
	isbn10, isbn13, published   string
	publisher, series, location string
	authors, categories         []string
	number, pages               int64
}

func newBookAddCmd(a *app) *cobra.Command {
	var f bookAddFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book",
		Long: `Add a book with its authors, categories, publisher, series and location.
Named records are reused when a row with the same name exists.

Example:
  shelf book add --title "The Hobbit" --author "J. R. R. Tolkien" --isbn13 9780547928227`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := f.bookInfo()
			return a.withLibrary(cmd, func(ctx context.Context, svc *library.Service) error {
				id, err := svc.SaveBookInfo(ctx, info)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]int64{"id": id})
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.title, "title", "", "book title (required)")
	fl.StringVar(&f.subtitle, "subtitle", "", "subtitle")
	fl.StringVar(&f.language, "language", "", "language code")
	fl.StringVar(&f.isbn10, "isbn10", "", "ISBN-10")
	fl.StringVar(&f.isbn13, "isbn13", "", "ISBN-13")
	fl.StringVar(&f.published, "published", "", "published date")
	fl.StringVar(&f.publisher, "publisher", "", "publisher name")
	fl.StringVar(&f.series, "series", "", "series name")
	fl.Int64Var(&f.number, "number", 0, "number within the series")
	fl.StringVar(&f.location, "location", "", "shelf location")
	fl.Int64Var(&f.pages, "pages", 0, "page count")
	fl.StringArrayVar(&f.authors, "author", nil, "author name (repeatable)")
	fl.StringArrayVar(&f.categories, "category", nil, "category name (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func (f bookAddFlags) bookInfo() *types.BookInfo {
	info := types.NewBookInfo(types.NewBook(f.title))
	info.Subtitle = optional(f.subtitle)
	info.Language = optional(f.language)
	info.ISBN10 = optional(f.isbn10)
	info.ISBN13 = optional(f.isbn13)
	info.PublishedDate = optional(f.published)
	if f.pages > 0 {
		info.PageCount = types.Ptr(f.pages)
	}
	if f.number > 0 {
		info.Number = types.Ptr(f.number)
	}
	for _, name := range f.authors {
		info.Authors = append(info.Authors, &types.Author{Name: types.Ptr(name)})
	}
	for _, name := range f.categories {
		info.Categories = append(info.Categories, &types.Category{Name: types.Ptr(name)})
	}
	if f.publisher != "" {
		info.Publisher = &types.Publisher{Name: types.Ptr(f.publisher)}
	}
	if f.series != "" {
		info.Series = &types.Series{Name: types.Ptr(f.series)}
	}
	if f.location != "" {
		info.Location = &types.BookLocation{Name: types.Ptr(f.location)}
	}
	return info
}

func newBookGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a book with full details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withLibrary(cmd, func(ctx context.Context, svc *library.Service) error {
				info, ok, err := svc.GetBookInfo(ctx, id)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("book %d: %w", id, types.ErrNotFound)
				}
				v := viewOf(info)
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), v)
				}
				printBook(cmd, v)
				return nil
			})
		},
	}
}

func printBook(cmd *cobra.Command, v bookView) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	row := func(label, value string) {
		if value != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", label, value)
		}
	}
	row("ID", fmt.Sprint(v.ID))
	row("Title", v.Title)
	row("Subtitle", v.Subtitle)
	row("Authors", strings.Join(v.Authors, ", "))
	row("Categories", strings.Join(v.Categories, ", "))
	row("Publisher", v.Publisher)
	row("Published", v.PublishedDate)
	row("ISBN-10", v.ISBN10)
	row("ISBN-13", v.ISBN13)
	if v.Series != "" && v.Number != nil {
		row("Series", fmt.Sprintf("%s #%d", v.Series, *v.Number))
	} else {
		row("Series", v.Series)
	}
	row("Location", v.Location)
	row("Read", yesNo(v.IsRead))
	row("Favourite", yesNo(v.IsFavourite))
	if v.LoanedTo != "" {
		loan := v.LoanedTo
		if v.LoanDate != nil {
			loan += " since " + v.LoanDate.Format(dateLayout)
		}
		row("Loaned to", loan)
	}
	tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func newBookListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List books sorted by title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLibrary(cmd, func(ctx context.Context, svc *library.Service) error {
				books, err := svc.ListBookInfo(ctx)
				if err != nil {
					return err
				}
				return a.printBooks(cmd, books)
			})
		},
	}
}

func newBookSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search <terms>...",
		Short: "Find books by title, subtitle, author or description",
		Long: `Search lists the books whose title, subtitle, author names or description
contain a word starting with every given term, best match first.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLibrary(cmd, func(ctx context.Context, svc *library.Service) error {
				books, err := svc.SearchBooks(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				return a.printBooks(cmd, books)
			})
		},
	}
}

// printBooks writes books as JSON views or as a table.
func (a *app) printBooks(cmd *cobra.Command, books []*types.BookInfo) error {
	views := viewsOf(books)
	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), views)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHORS\tREAD")
	for _, v := range views {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", v.ID, v.Title, strings.Join(v.Authors, ", "), yesNo(v.IsRead))
	}
	return tw.Flush()
}

func newBookDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book and any records only it referenced",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withLibrary(cmd, func(ctx context.Context, svc *library.Service) error {
				return svc.DeleteBook(ctx, id)
			})
		},
	}
}

func newBookToggleCmd(a *app, use, short string, toggle func(*library.Service, context.Context, int64) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withLibrary(cmd, func(ctx context.Context, svc *library.Service) error {
				on, err := toggle(svc, ctx, id)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]any{"id": id, use: on})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", use, yesNo(on))
				return nil
			})
		},
	}
}

func newBookLoanCmd(a *app) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "loan <id> <borrower>",
		Short: "Record a loan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			when := time.Now()
			if date != "" {
				if when, err = time.ParseInLocation(dateLayout, date, time.Local); err != nil {
					return fmt.Errorf("%w: --date %q: want YYYY-MM-DD", errUsage, date)
				}
			}
			return a.withLibrary(cmd, func(ctx context.Context, svc *library.Service) error {
				return svc.LoanBook(ctx, id, args[1], when)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "loan date as YYYY-MM-DD (default: today)")
	return cmd
}

func newBookReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return <id>",
		Short: "Clear a loan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withLibrary(cmd, func(ctx context.Context, svc *library.Service) error {
				return svc.ReturnBook(ctx, id)
			})
		},
	}
}
