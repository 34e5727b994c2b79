package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/urbanmobility/umob/internal/models"
)

var travellerCmd = &cobra.Command{
	Use:   "traveller",
	Short: "Manage customer records",
	Long: `Manage traveller (customer) records. Address and contact details are
encrypted at rest; searching matches the cleartext name, birthday, and
driving license fields.

Examples:
  umob traveller add --first-name Emma --last-name "de Vries" ...
  umob traveller search vries
  umob traveller show 12
  umob traveller delete 12`,
}

var travellerAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new traveller",
	RunE:  runTravellerAdd,
}

var travellerShowCmd = &cobra.Command{
	Use:   "show <TRAVELLER_ID>",
	Short: "Show a traveller's full record",
	Args:  cobra.ExactArgs(1),
	RunE:  runTravellerShow,
}

var travellerSearchCmd = &cobra.Command{
	Use:   "search <QUERY>",
	Short: "Search travellers by name or license",
	Args:  cobra.ExactArgs(1),
	RunE:  runTravellerSearch,
}

var travellerUpdateCmd = &cobra.Command{
	Use:   "update <TRAVELLER_ID>",
	Short: "Update a traveller record",
	Args:  cobra.ExactArgs(1),
	RunE:  runTravellerUpdate,
}

var travellerDeleteCmd = &cobra.Command{
	Use:   "delete <TRAVELLER_ID>",
	Short: "Delete a traveller record",
	Args:  cobra.ExactArgs(1),
	RunE:  runTravellerDelete,
}

var travellerFields models.Traveller

func addTravellerFieldFlags(c *cobra.Command) {
	c.Flags().StringVar(&travellerFields.FirstName, "first-name", "", "First name")
	c.Flags().StringVar(&travellerFields.LastName, "last-name", "", "Last name")
	c.Flags().StringVar(&travellerFields.Birthday, "birthday", "", "Birthday, YYYY-MM-DD")
	c.Flags().StringVar(&travellerFields.Gender, "gender", "", "Gender: male or female")
	c.Flags().StringVar(&travellerFields.StreetName, "street", "", "Street name")
	c.Flags().StringVar(&travellerFields.HouseNumber, "house-number", "", "House number")
	c.Flags().StringVar(&travellerFields.ZipCode, "zip", "", "Zip code, DDDDXX")
	c.Flags().StringVar(&travellerFields.City, "city", "", "City (one of the served cities)")
	c.Flags().StringVar(&travellerFields.Email, "email", "", "Email address")
	c.Flags().StringVar(&travellerFields.MobilePhone, "phone", "", "Mobile phone, +31-6-DDDDDDDD")
	c.Flags().StringVar(&travellerFields.DrivingLicense, "license", "", "Driving license number")
}

func init() {
	rootCmd.AddCommand(travellerCmd)
	travellerCmd.AddCommand(travellerAddCmd)
	travellerCmd.AddCommand(travellerShowCmd)
	travellerCmd.AddCommand(travellerSearchCmd)
	travellerCmd.AddCommand(travellerUpdateCmd)
	travellerCmd.AddCommand(travellerDeleteCmd)

	addTravellerFieldFlags(travellerAddCmd)
	addTravellerFieldFlags(travellerUpdateCmd)
}

func runTravellerAdd(cmd *cobra.Command, args []string) error {
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	t := travellerFields
	id, err := svc.AddTraveller(actor, &t)
	if err != nil {
		return err
	}
	fmt.Printf("Registered traveller %s %s (id %d)\n", t.FirstName, t.LastName, id)
	return nil
}

func runTravellerShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	t, err := svc.GetTraveller(actor, id)
	if err != nil {
		return err
	}
	printTraveller(t)
	return nil
}

func runTravellerSearch(cmd *cobra.Command, args []string) error {
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	results, err := svc.SearchTravellers(actor, args[0])
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No travellers found")
		return nil
	}
	for _, t := range results {
		fmt.Printf("%4d  %-25s  %s  %s\n", t.ID, t.FirstName+" "+t.LastName, t.Birthday, t.DrivingLicense)
	}
	return nil
}

func runTravellerUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	existing, err := svc.GetTraveller(actor, id)
	if err != nil {
		return err
	}

	// Only fields the operator passed are changed
	t := *existing
	applyIfSet := func(flag string, dst *string, src string) {
		if cmd.Flags().Changed(flag) {
			*dst = src
		}
	}
	applyIfSet("first-name", &t.FirstName, travellerFields.FirstName)
	applyIfSet("last-name", &t.LastName, travellerFields.LastName)
	applyIfSet("birthday", &t.Birthday, travellerFields.Birthday)
	applyIfSet("gender", &t.Gender, travellerFields.Gender)
	applyIfSet("street", &t.StreetName, travellerFields.StreetName)
	applyIfSet("house-number", &t.HouseNumber, travellerFields.HouseNumber)
	applyIfSet("zip", &t.ZipCode, travellerFields.ZipCode)
	applyIfSet("city", &t.City, travellerFields.City)
	applyIfSet("email", &t.Email, travellerFields.Email)
	applyIfSet("phone", &t.MobilePhone, travellerFields.MobilePhone)
	applyIfSet("license", &t.DrivingLicense, travellerFields.DrivingLicense)

	if err := svc.UpdateTraveller(actor, &t); err != nil {
		return err
	}
	fmt.Println("Traveller updated")
	return nil
}

func runTravellerDelete(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	ok, err := confirmPhrase(
		fmt.Sprintf("This permanently deletes traveller %d and their personal data.", id),
		"DELETE")
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Cancelled")
		return nil
	}

	if err := svc.DeleteTraveller(actor, id); err != nil {
		return err
	}
	fmt.Println("Traveller deleted")
	return nil
}

func printTraveller(t *models.Traveller) {
	fmt.Printf("Traveller %d\n", t.ID)
	fmt.Printf("  Name:       %s %s\n", t.FirstName, t.LastName)
	fmt.Printf("  Birthday:   %s\n", t.Birthday)
	fmt.Printf("  Gender:     %s\n", t.Gender)
	fmt.Printf("  Address:    %s %s, %s %s\n", t.StreetName, t.HouseNumber, t.ZipCode, t.City)
	fmt.Printf("  Email:      %s\n", t.Email)
	fmt.Printf("  Phone:      %s\n", t.MobilePhone)
	fmt.Printf("  License:    %s\n", t.DrivingLicense)
	fmt.Printf("  Registered: %s\n", t.RegisteredAt.Format("2006-01-02"))
}
