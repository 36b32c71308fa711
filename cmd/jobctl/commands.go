package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	humanize "github.com/dustin/go-humanize"
	"github.com/gvfbla/jobboard/internal/api"
	"github.com/gvfbla/jobboard/internal/dispatch"
	"github.com/gvfbla/jobboard/internal/listing"
	"github.com/gvfbla/jobboard/internal/role"
	"github.com/gvfbla/jobboard/internal/search"
)

func loginCmd(ctx context.Context, a *app, args []string) error {
	var username, password string
	fs := flags("login")
	fs.StringVarP(&username, "username", "u", "", "account username")
	fs.StringVarP(&password, "password", "p", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return a.outcome(a.dispatcher.Login(ctx, username, password))
}

func registerStudentCmd(ctx context.Context, a *app, args []string) error {
	form := dispatch.Registration{Role: role.Student}
	fs := flags("register-student")
	fs.StringVarP(&form.Username, "username", "u", "", "account username")
	fs.StringVarP(&form.Password, "password", "p", "", "account password")
	fs.StringVar(&form.Email, "email", "", "contact email")
	fs.StringVar(&form.FullName, "name", "", "full name, first word is the first name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return a.outcome(a.dispatcher.Register(ctx, form))
}

func registerEmployerCmd(ctx context.Context, a *app, args []string) error {
	form := dispatch.Registration{Role: role.Employer}
	fs := flags("register-employer")
	fs.StringVarP(&form.Username, "username", "u", "", "account username")
	fs.StringVarP(&form.Password, "password", "p", "", "account password")
	fs.StringVar(&form.Email, "email", "", "contact email")
	fs.StringVar(&form.CompanyName, "company", "", "company name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return a.outcome(a.dispatcher.Register(ctx, form))
}

func logoutCmd(ctx context.Context, a *app, args []string) error {
	return a.outcome(a.dispatcher.Logout(ctx))
}

func whoamiCmd(ctx context.Context, a *app, args []string) error {
	if !a.session.Current().Authenticated() {
		fmt.Fprintln(a.out, "not logged in")
		return nil
	}
	o := a.dispatcher.Verify(ctx)
	if o.State == dispatch.Failed {
		return a.outcome(o)
	}
	current := a.session.Current()
	if !current.Authenticated() {
		fmt.Fprintln(a.out, o.Message)
		return nil
	}
	fmt.Fprintf(a.out, "%s (%s) %s\n", current.Username, strings.ToLower(current.Role.String()), current.Email)
	return nil
}

func listCmd(ctx context.Context, a *app, args []string) error {
	var f search.Filter
	fs := flags("list")
	fs.StringVarP(&f.Query, "query", "q", "", "text matched against title, company, description and skills")
	fs.StringVarP(&f.Category, "category", "c", search.CategoryAll, "one of "+strings.Join(search.Categories, ", "))
	fs.StringVarP(&f.JobType, "type", "t", "", "one of "+strings.Join(listing.JobTypes, ", "))
	if err := fs.Parse(args); err != nil {
		return err
	}
	a.print(search.Visible(a.listings.All(), f))
	return nil
}

func pendingCmd(ctx context.Context, a *app, args []string) error {
	if !a.session.Capabilities().CanModerate {
		return fmt.Errorf("only admins can see the moderation queue")
	}
	a.print(a.listings.Pending())
	return nil
}

func createCmd(ctx context.Context, a *app, args []string) error {
	var d listing.Draft
	fs := flags("create")
	fs.StringVar(&d.JobTitle, "title", "", "job title")
	fs.StringVar(&d.CompanyName, "company", "", "company name")
	fs.StringVar(&d.Location, "location", "", "location")
	fs.StringVar(&d.JobDescription, "description", "", "job description, markdown")
	fs.StringVar(&d.JobType, "type", listing.JobTypes[0], "one of "+strings.Join(listing.JobTypes, ", "))
	fs.StringVar(&d.StartingSalary, "salary", "", "starting salary")
	fs.StringVar(&d.Skills, "skills", "", "comma separated skills")
	fs.StringVar(&d.Category, "category", "", "one of "+strings.Join(search.Categories[1:], ", "))
	if err := fs.Parse(args); err != nil {
		return err
	}
	o := a.dispatcher.CreateListing(ctx, d)
	if err := a.outcome(o); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "id: %s\n", o.Posting.ID)
	return nil
}

func applyCmd(ctx context.Context, a *app, args []string) error {
	var form api.Application
	fs := flags("apply")
	fs.StringVar(&form.FirstName, "first", "", "first name")
	fs.StringVar(&form.LastName, "last", "", "last name")
	fs.StringVar(&form.Email, "email", "", "contact email")
	fs.StringVar(&form.PhoneNumber, "phone", "", "phone number")
	fs.StringVar(&form.Education, "education", "", "education")
	fs.StringVar(&form.Experience, "experience", "", "experience")
	fs.StringVar(&form.References, "references", "", "references")
	id, err := positional(fs, args, "posting id")
	if err != nil {
		return err
	}
	if _, ok := a.listings.Get(id); !ok {
		return fmt.Errorf("no posting with id %s", id)
	}
	form.PostingID = id
	return a.outcome(a.dispatcher.Apply(ctx, form))
}

func approveCmd(ctx context.Context, a *app, args []string) error {
	id, err := positional(flags("approve"), args, "posting id")
	if err != nil {
		return err
	}
	return a.outcome(a.dispatcher.Approve(ctx, id))
}

func rejectCmd(ctx context.Context, a *app, args []string) error {
	var reason string
	fs := flags("reject")
	fs.StringVar(&reason, "reason", "", "reason shown to the employer")
	id, err := positional(fs, args, "posting id")
	if err != nil {
		return err
	}
	return a.outcome(a.dispatcher.Reject(ctx, id, reason))
}

func (a *app) print(postings []listing.Posting) {
	if len(postings) == 0 {
		fmt.Fprintln(a.out, "no postings")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCOMPANY\tLOCATION\tTYPE\tSALARY\tSTATUS")
	for _, p := range postings {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.JobTitle, p.CompanyName, p.Location, p.JobType, salary(p.StartingSalary), strings.ToLower(string(p.Status)))
	}
	tw.Flush()
	fmt.Fprintf(a.out, "%s postings\n", humanize.Comma(int64(len(postings))))
}

func salary(s string) string {
	if s == "" {
		return "-"
	}
	return listing.HumanSalary(s)
}
