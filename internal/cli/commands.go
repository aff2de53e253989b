package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/claude/coachwizard/internal/apiclient"
	"github.com/claude/coachwizard/internal/lookup"
	"github.com/claude/coachwizard/internal/models"
	"github.com/claude/coachwizard/internal/wizard"
)

func (a *App) register(ctx context.Context, args []string) error {
	var p models.Profile
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.StringVar(&p.Name, "name", "", "full name")
	fs.IntVar(&p.Age, "age", 0, "age in years")
	fs.StringVar(&p.Gender, "gender", "", strings.Join(models.Genders, "|"))
	fs.Float64Var(&p.Height, "height", 0, "height in cm")
	fs.Float64Var(&p.Weight, "weight", 0, "weight in kg")
	fs.StringVar(&p.FitnessLevel, "fitness-level", "", strings.Join(models.FitnessLevels, "|"))
	if err := a.parse(fs, args); err != nil {
		return err
	}

	id, err := a.ctrl.StartSession(ctx, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Registered %s. Session id: %s\n", strings.TrimSpace(p.Name), id)
	a.next(wizard.Sport)
	return nil
}

func (a *App) sport(ctx context.Context, args []string) error {
	var sel models.SportSelection
	fs := flag.NewFlagSet("sport", flag.ContinueOnError)
	fs.StringVar(&sel.Sport, "sport", "", "sport (see: coachwizard options sports)")
	fs.StringVar(&sel.Level, "level", "", "level (see: coachwizard options fitness_levels)")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	if err := a.ctrl.SubmitSport(ctx, sel); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Sport saved: %s (%s)\n", lookup.Label(sel.Sport), sel.Level)
	a.next(wizard.Competition)
	return nil
}

func (a *App) competition(ctx context.Context, args []string) error {
	var comp models.Competition
	fs := flag.NewFlagSet("competition", flag.ContinueOnError)
	fs.StringVar(&comp.CompetitionType, "type", "", "competition type (see: coachwizard options competition_types)")
	fs.StringVar(&comp.Format, "format", "", "format (see: coachwizard options sport_formats)")
	fs.StringVar(&comp.Level, "level", "", "level (see: coachwizard options competition_levels)")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	if err := a.ctrl.SubmitCompetition(ctx, comp); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Competition saved.")
	fmt.Fprintln(a.out, "Add past injuries and achievements with: coachwizard injury / coachwizard achievement")
	a.next(wizard.Diet)
	return nil
}

func (a *App) injury(ctx context.Context, args []string) error {
	var rec models.InjuryRecord
	var weeks int
	fs := flag.NewFlagSet("injury", flag.ContinueOnError)
	fs.StringVar(&rec.Type, "type", "", "injury")
	fs.StringVar(&rec.Date, "date", "", "date (YYYY-MM-DD)")
	fs.StringVar(&rec.Severity, "severity", "", strings.Join(models.InjurySeverities, "|"))
	fs.IntVar(&weeks, "recovery-weeks", 0, "recovery time in weeks")
	fs.StringVar(&rec.Notes, "notes", "", "optional notes")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	rec.RecoveryTime = models.Weeks(weeks)

	created, err := a.ctrl.AddInjury(ctx, rec)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Injury recorded: %s on %s (%s, %d weeks)\n",
		created.Type, created.Date, created.Severity, created.RecoveryTime)
	return nil
}

func (a *App) achievement(ctx context.Context, args []string) error {
	var rec models.AchievementRecord
	fs := flag.NewFlagSet("achievement", flag.ContinueOnError)
	fs.StringVar(&rec.Title, "title", "", "title")
	fs.StringVar(&rec.Date, "date", "", "date (YYYY-MM-DD)")
	fs.StringVar(&rec.Category, "category", "", strings.Join(models.AchievementCategories, "|"))
	fs.StringVar(&rec.Description, "description", "", "description")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	created, err := a.ctrl.AddAchievement(ctx, rec)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Achievement recorded: %s on %s (%s)\n", created.Title, created.Date, created.Category)
	return nil
}

func (a *App) history(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if err := a.ctrl.Enter(ctx, wizard.History); err != nil {
		return err
	}

	lists, err := a.ctrl.LoadHistory(ctx)
	if err != nil {
		a.log.Warn("loading history failed", "error", err)
		fmt.Fprintf(a.out, "Warning: %s Showing locally recorded entries.\n", err)
		lists = a.ctrl.History()
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INJURY\tDATE\tSEVERITY\tWEEKS\tNOTES")
	for _, r := range lists.Injuries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.Type, r.Date, r.Severity, r.RecoveryTime, r.Notes)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "ACHIEVEMENT\tDATE\tCATEGORY\tDESCRIPTION")
	for _, r := range lists.Achievements {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Title, r.Date, r.Category, r.Description)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	a.next(wizard.Diet)
	return nil
}

func (a *App) diet(ctx context.Context, args []string) error {
	var d models.DietPreferences
	var restrictions string
	fs := flag.NewFlagSet("diet", flag.ContinueOnError)
	fs.StringVar(&d.DietType, "type", "", "diet type (see: coachwizard options diet_types)")
	fs.StringVar(&restrictions, "restrictions", "", "comma-separated foods to avoid")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if restrictions != "" {
		d.Restrictions = strings.Split(restrictions, ",")
	}

	if err := a.ctrl.SubmitDiet(ctx, d); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Diet saved. Your plan is ready.")
	a.next(wizard.Plan)
	return nil
}

func (a *App) plan(ctx context.Context, args []string) error {
	var id string
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	fs.StringVar(&id, "session", "", "session id (default: current session)")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if id == "" {
		if err := a.ctrl.Enter(ctx, wizard.Plan); err != nil {
			return err
		}
		st, err := a.ctrl.Status(ctx)
		if err != nil {
			return err
		}
		id = st.SessionID
	}

	plan, err := a.ctrl.FetchPlan(ctx, id)
	if err != nil {
		return err
	}
	a.printSection("Training plan", plan.TrainingPlan)
	a.printSection("Nutrition plan", plan.NutritionPlan)
	if len(plan.InjuryRecommendations) > 0 {
		a.printSection("Injury recommendations", plan.InjuryRecommendations)
	}
	return nil
}

func (a *App) printSection(title string, items []models.PlanItem) {
	fmt.Fprintf(a.out, "%s\n%s\n", title, strings.Repeat("=", len(title)))
	if len(items) == 0 {
		fmt.Fprintln(a.out, "  (none)")
	}
	for _, item := range items {
		fmt.Fprintf(a.out, "- %s\n", item.Description)
		for _, d := range item.Details {
			fmt.Fprintf(a.out, "    %s\n", d)
		}
	}
	fmt.Fprintln(a.out)
}

func (a *App) status(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	if err := a.parse(fs, args); err != nil {
		return err
	}
	st, err := a.ctrl.Status(ctx)
	if err != nil {
		return err
	}
	if st.SessionID == "" {
		fmt.Fprintln(a.out, "No session in progress.")
		a.next(wizard.Profile)
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Session:\t%s\n", st.SessionID)
	fmt.Fprintf(tw, "Name:\t%s\n", st.UserName)
	if st.SelectedSport != "" {
		fmt.Fprintf(tw, "Sport:\t%s\n", lookup.Label(st.SelectedSport))
	}
	fmt.Fprintf(tw, "Completed:\t%s\n", st.Stage)
	fmt.Fprintf(tw, "History:\t%d injuries, %d achievements\n", st.Injuries, st.Achievements)
	fmt.Fprintf(tw, "Next:\t%s (coachwizard %s)\n", st.Next.Route(), stepCommands[st.Next])
	return tw.Flush()
}

func (a *App) startOver(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("start-over", flag.ContinueOnError)
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if err := a.ctrl.Restart(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Session cleared.")
	a.next(wizard.Profile)
	return nil
}

func (a *App) options(ctx context.Context, args []string) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		fmt.Fprintf(a.out, "options: list name required, one of %s\n", listNames())
		return ErrUsage
	}
	list := apiclient.List(args[0])
	var sport string
	fs := flag.NewFlagSet("options", flag.ContinueOnError)
	fs.StringVar(&sport, "sport", "", "sport, for sport_formats (default: selected sport)")
	if err := a.parse(fs, args[1:]); err != nil {
		return err
	}
	if list == apiclient.SportFormats && sport == "" {
		if st, err := a.ctrl.Status(ctx); err == nil {
			sport = st.SelectedSport
		}
	}
	if _, err := list.Path(sport); err != nil {
		fmt.Fprintf(a.out, "options: %v\n", err)
		return ErrUsage
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, v := range a.catalog.Options(ctx, list, sport) {
		fmt.Fprintf(tw, "%s\t%s\n", v, lookup.Label(v))
	}
	return tw.Flush()
}

func listNames() string {
	names := make([]string, len(apiclient.Lists))
	for i, l := range apiclient.Lists {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}

func (a *App) ask(ctx context.Context, args []string) error {
	q := strings.TrimSpace(strings.Join(args, " "))
	if q == "" {
		fmt.Fprintln(a.out, "ask: question required")
		return ErrUsage
	}
	answer, err := a.coach.Ask(ctx, q)
	if err != nil {
		return fmt.Errorf("asking coach: %w", err)
	}
	fmt.Fprintln(a.out, answer)
	return nil
}
