package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	spyagencysdk "spyagency/sdk/go"
)

func withClient(ctx context.Context, fn func(context.Context, *spyagencysdk.Client) error) error {
	c := spyagencysdk.New(v.GetString("api-url"))
	c.RequestID = "cli-" + uuid.NewString()
	return fn(ctx, c)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// parseTarget reads name:country[:notes]; notes may contain further colons.
func parseTarget(s string) (spyagencysdk.NewTarget, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return spyagencysdk.NewTarget{}, fmt.Errorf("target %q must look like name:country[:notes]", s)
	}
	t := spyagencysdk.NewTarget{Name: strings.TrimSpace(parts[0]), Country: strings.TrimSpace(parts[1])}
	if len(parts) == 3 {
		t.Notes = parts[2]
	}
	return t, nil
}

func renderCats(cats ...spyagencysdk.Cat) func(table.Writer) {
	return func(tw table.Writer) {
		tw.AppendHeader(table.Row{"ID", "Name", "Years", "Breed", "Salary"})
		for _, c := range cats {
			tw.AppendRow(table.Row{c.ID, c.Name, c.YearsExperience, c.Breed, fmt.Sprintf("%.2f", c.Salary)})
		}
	}
}

func renderMissions(missions ...spyagencysdk.Mission) func(table.Writer) {
	return func(tw table.Writer) {
		tw.AppendHeader(table.Row{"ID", "Complete", "Cat", "Targets"})
		for _, m := range missions {
			cat := "-"
			if m.Cat != nil {
				cat = fmt.Sprintf("%d %s", m.Cat.ID, m.Cat.Name)
			} else if m.CatID != nil {
				cat = strconv.FormatInt(*m.CatID, 10)
			}
			done := 0
			for _, t := range m.Targets {
				if t.Complete {
					done++
				}
			}
			tw.AppendRow(table.Row{m.ID, m.Complete, cat, fmt.Sprintf("%d/%d", done, len(m.Targets))})
		}
	}
}

func renderTargets(targets ...spyagencysdk.Target) func(table.Writer) {
	return func(tw table.Writer) {
		tw.AppendHeader(table.Row{"ID", "Mission", "Name", "Country", "Complete", "Notes"})
		for _, t := range targets {
			tw.AppendRow(table.Row{t.ID, t.MissionID, t.Name, t.Country, t.Complete, t.Notes})
		}
	}
}

func catCmd() *cobra.Command {
	cat := &cobra.Command{
		Use:   "cat",
		Short: "Manage spy cats",
		Long:  "Cats are the agents. Breeds are checked against TheCatAPI on hire; afterwards only the salary may change.",
	}
	cat.AddCommand(catCreateCmd())
	cat.AddCommand(catListCmd())
	cat.AddCommand(catGetCmd())
	cat.AddCommand(catSalaryCmd())
	cat.AddCommand(catDeleteCmd())
	return cat
}

func catCreateCmd() *cobra.Command {
	var (
		name, breed string
		years       int
		salary      float64
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Hire a cat",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *spyagencysdk.Client) error {
				created, err := c.CreateCat(ctx, name, years, breed, salary)
				if err != nil {
					return err
				}
				return printJSONOrTable(created, renderCats(created))
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "cat name")
	cmd.Flags().StringVar(&breed, "breed", "", "breed name as known to TheCatAPI")
	cmd.Flags().IntVar(&years, "years", 0, "years of experience (0-50)")
	cmd.Flags().Float64Var(&salary, "salary", 0, "salary (> 0)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("breed")
	_ = cmd.MarkFlagRequired("salary")
	return cmd
}

func catListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *spyagencysdk.Client) error {
				cats, err := c.ListCats(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(cats, renderCats(cats...))
			})
		},
	}
}

func catGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a cat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd.Context(), func(ctx context.Context, c *spyagencysdk.Client) error {
				got, err := c.GetCat(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(got, renderCats(got))
			})
		},
	}
}

func catSalaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "salary <id> <amount>",
		Short: "Change a cat's salary",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			salary, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid salary %q", args[1])
			}
			return withClient(cmd.Context(), func(ctx context.Context, c *spyagencysdk.Client) error {
				updated, err := c.UpdateCatSalary(ctx, id, salary)
				if err != nil {
					return err
				}
				return printJSONOrTable(updated, renderCats(updated))
			})
		},
	}
}

func catDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Fire a cat (refused while it has an active mission)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd.Context(), func(ctx context.Context, c *spyagencysdk.Client) error {
				if err := c.DeleteCat(ctx, id); err != nil {
					return err
				}
				fmt.Printf("cat %d deleted\n", id)
				return nil
			})
		},
	}
}

func missionCmd() *cobra.Command {
	m := &cobra.Command{
		Use:   "mission",
		Short: "Manage missions",
		Long:  "Missions hold one to three targets. A mission completes when all of its targets do, which frees its cat for another mission.",
	}
	m.AddCommand(missionCreateCmd())
	m.AddCommand(missionListCmd())
	m.AddCommand(missionGetCmd())
	m.AddCommand(missionDeleteCmd())
	m.AddCommand(missionAssignCmd())
	m.AddCommand(missionUnassignCmd())
	return m
}

func missionCreateCmd() *cobra.Command {
	var raw []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a mission with its targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := make([]spyagencysdk.NewTarget, 0, len(raw))
			for _, s := range raw {
				t, err := parseTarget(s)
				if err != nil {
					return err
				}
				targets = append(targets, t)
			}
			return withClient(cmd.Context(), func(ctx context.Context, c *spyagencysdk.Client) error {
				created, err := c.CreateMission(ctx, targets)
				if err != nil {
					return err
				}
				return printJSONOrTable(created, renderTargets(created.Targets...))
			})
		},
	}
	cmd.Flags().StringArrayVar(&raw, "target", nil, "target as name:country[:notes] (repeatable, 1-3)")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func missionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List missions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *spyagencysdk.Client) error {
				missions, err := c.ListMissions(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(missions, renderMissions(missions...))
			})
		},
	}
}

func missionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a mission and its targets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd.Context(), func(ctx context.Context, c *spyagencysdk.Client) error {
				got, err := c.GetMission(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(got, func(tw table.Writer) {
					renderMissions(got)(tw)
					tw.AppendSeparator()
					tw.AppendRow(table.Row{"Target", "Country", "Complete", "Notes"})
					for _, t := range got.Targets {
						tw.AppendRow(table.Row{fmt.Sprintf("%d %s", t.ID, t.Name), t.Country, t.Complete, t.Notes})
					}
				})
			})
		},
	}
}

func missionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an unassigned mission and its targets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd.Context(), func(ctx context.Context, c *spyagencysdk.Client) error {
				if err := c.DeleteMission(ctx, id); err != nil {
					return err
				}
				fmt.Printf("mission %d deleted\n", id)
				return nil
			})
		},
	}
}

func missionAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <mission-id> <cat-id>",
		Short: "Assign a cat to a mission",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			missionID, err := parseID(args[0])
			if err != nil {
				return err
			}
			catID, err := parseID(args[1])
			if err != nil {
				return err
			}
			return withClient(cmd.Context(), func(ctx context.Context, c *spyagencysdk.Client) error {
				m, err := c.AssignCat(ctx, missionID, catID)
				if err != nil {
					return err
				}
				return printJSONOrTable(m, renderMissions(m))
			})
		},
	}
}

func missionUnassignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unassign <mission-id>",
		Short: "Remove the cat from a mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			missionID, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd.Context(), func(ctx context.Context, c *spyagencysdk.Client) error {
				m, err := c.UnassignCat(ctx, missionID)
				if err != nil {
					return err
				}
				return printJSONOrTable(m, renderMissions(m))
			})
		},
	}
}

func targetCmd() *cobra.Command {
	t := &cobra.Command{Use: "target", Short: "Update mission targets"}
	t.AddCommand(targetUpdateCmd())
	return t
}

func targetUpdateCmd() *cobra.Command {
	var (
		notes    string
		complete bool
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a target's notes and/or mark it complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var notesPtr *string
			var completePtr *bool
			if cmd.Flags().Changed("notes") {
				notesPtr = &notes
			}
			if cmd.Flags().Changed("complete") {
				completePtr = &complete
			}
			if notesPtr == nil && completePtr == nil {
				return fmt.Errorf("nothing to update; pass --notes and/or --complete")
			}
			return withClient(cmd.Context(), func(ctx context.Context, c *spyagencysdk.Client) error {
				res, err := c.UpdateTarget(ctx, id, notesPtr, completePtr)
				if err != nil {
					return err
				}
				return printJSONOrTable(res, func(tw table.Writer) {
					renderTargets(res.Target)(tw)
					tw.AppendFooter(table.Row{"", "", "", "mission complete", res.MissionComplete, ""})
				})
			})
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "replace the target's notes")
	cmd.Flags().BoolVar(&complete, "complete", false, "mark the target complete")
	return cmd
}
