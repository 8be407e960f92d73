package cmd

import (
	"context"

	domainRule "github.com/AzielCF/aegisx/domains/rule"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrationSeedSchool string

var migrationCmd = &cobra.Command{
	Use:   "migration",
	Short: "Initialize the database schema (and optionally seed baseline rules)",
	Run:   runMigration,
}

func init() {
	migrationCmd.Flags().StringVar(&migrationSeedSchool, "seed-school", "",
		"seed a baseline school-hours rule set for the given school id")
	rootCmd.AddCommand(migrationCmd)
}

// runMigration relies on initApp having created the schema; it only handles
// the optional seeding so a fresh deployment does not start with an empty
// (fail-closed, everything denied) rule set.
func runMigration(cmd *cobra.Command, _ []string) {
	logrus.Info("[MIGRATION] Schema initialized")

	if migrationSeedSchool == "" {
		return
	}

	ctx := context.Background()

	existing, err := ruleUsecase.List(ctx, migrationSeedSchool)
	if err != nil {
		logrus.Fatalf("[MIGRATION] Failed checking existing rules: %v", err)
	}
	if len(existing) > 0 {
		logrus.Infof("[MIGRATION] School %s already has %d rules, skipping seed", migrationSeedSchool, len(existing))
		return
	}

	seeds := []domainRule.CreateRuleRequest{
		{
			SchoolID:    migrationSeedSchool,
			Name:        "School hours access",
			Description: "Students and staff may enter on weekdays during school hours",
			RuleType:    domainRule.TypeTimeBased,
			Conditions: domainRule.Conditions{
				TimeWindow:  &domainRule.TimeWindow{Start: "07:00", End: "18:00"},
				AllowedDays: []int{1, 2, 3, 4, 5},
			},
			Action:   domainRule.ActionAllow,
			Priority: 10,
			IsActive: true,
		},
		{
			SchoolID:    migrationSeedSchool,
			Name:        "Staff after-hours access",
			Description: "Staff keep access outside school hours",
			RuleType:    domainRule.TypeRoleBased,
			Conditions: domainRule.Conditions{
				RoleConstraint: domainRule.RoleStaffOnly,
			},
			Action:   domainRule.ActionAllow,
			Priority: 20,
			IsActive: true,
		},
	}

	for _, seed := range seeds {
		created, err := ruleUsecase.Create(ctx, seed)
		if err != nil {
			logrus.Fatalf("[MIGRATION] Failed seeding rule %q: %v", seed.Name, err)
		}
		logrus.Infof("[MIGRATION] Seeded rule %s (%s)", created.ID, created.Name)
	}
	logrus.Infof("[MIGRATION] Seeded %d rules for school %s", len(seeds), migrationSeedSchool)
}
