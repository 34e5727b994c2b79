package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/urbanmobility/umob/internal/models"
	"github.com/urbanmobility/umob/internal/service"
)

var scooterCmd = &cobra.Command{
	Use:   "scooter",
	Short: "Manage the scooter fleet",
	Long: `Manage fleet vehicles. Service engineers may update maintenance
status (charge, location, mileage, service flag) with 'scooter status';
system administrators manage the full records.

Examples:
  umob scooter add --brand Segway --model "Ninebot Max" --serial SGW00012345 ...
  umob scooter search ninebot
  umob scooter status 4 --soc 85 --out-of-service=false
  umob scooter delete 4`,
}

var scooterAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a scooter to the fleet",
	RunE:  runScooterAdd,
}

var scooterShowCmd = &cobra.Command{
	Use:   "show <SCOOTER_ID>",
	Short: "Show a scooter's full record",
	Args:  cobra.ExactArgs(1),
	RunE:  runScooterShow,
}

var scooterSearchCmd = &cobra.Command{
	Use:   "search <QUERY>",
	Short: "Search scooters by brand, model, or serial",
	Args:  cobra.ExactArgs(1),
	RunE:  runScooterSearch,
}

var scooterUpdateCmd = &cobra.Command{
	Use:   "update <SCOOTER_ID>",
	Short: "Update any field of a scooter",
	Args:  cobra.ExactArgs(1),
	RunE:  runScooterUpdate,
}

var scooterStatusCmd = &cobra.Command{
	Use:   "status <SCOOTER_ID>",
	Short: "Update a scooter's maintenance status",
	Long: `Update the maintenance-scoped fields of a scooter: state of charge,
target charge range, location, out-of-service flag, mileage, and last
maintenance date. Available to service engineers.`,
	Args: cobra.ExactArgs(1),
	RunE: runScooterStatus,
}

var scooterDeleteCmd = &cobra.Command{
	Use:   "delete <SCOOTER_ID>",
	Short: "Remove a scooter from the fleet",
	Args:  cobra.ExactArgs(1),
	RunE:  runScooterDelete,
}

var (
	scooterBrand        string
	scooterModel        string
	scooterSerial       string
	scooterTopSpeed     int
	scooterBattery      int
	scooterSoC          float64
	scooterTargetMin    float64
	scooterTargetMax    float64
	scooterLat          float64
	scooterLon          float64
	scooterOutOfService bool
	scooterMileage      float64
	scooterMaintenance  string
)

func addScooterStatusFlags(c *cobra.Command) {
	c.Flags().Float64Var(&scooterSoC, "soc", 0, "State of charge percentage")
	c.Flags().Float64Var(&scooterTargetMin, "target-min", 0, "Target SoC range minimum")
	c.Flags().Float64Var(&scooterTargetMax, "target-max", 0, "Target SoC range maximum")
	c.Flags().Float64Var(&scooterLat, "lat", 0, "Latitude")
	c.Flags().Float64Var(&scooterLon, "lon", 0, "Longitude")
	c.Flags().BoolVar(&scooterOutOfService, "out-of-service", false, "Out-of-service flag")
	c.Flags().Float64Var(&scooterMileage, "mileage", 0, "Mileage in km")
	c.Flags().StringVar(&scooterMaintenance, "maintained", "", "Last maintenance date, YYYY-MM-DD")
}

func addScooterIdentityFlags(c *cobra.Command) {
	c.Flags().StringVar(&scooterBrand, "brand", "", "Brand")
	c.Flags().StringVar(&scooterModel, "model", "", "Model")
	c.Flags().StringVar(&scooterSerial, "serial", "", "Serial number, 10-17 alphanumeric")
	c.Flags().IntVar(&scooterTopSpeed, "top-speed", 0, "Top speed in km/h")
	c.Flags().IntVar(&scooterBattery, "battery", 0, "Battery capacity in Wh")
}

func init() {
	rootCmd.AddCommand(scooterCmd)
	scooterCmd.AddCommand(scooterAddCmd)
	scooterCmd.AddCommand(scooterShowCmd)
	scooterCmd.AddCommand(scooterSearchCmd)
	scooterCmd.AddCommand(scooterUpdateCmd)
	scooterCmd.AddCommand(scooterStatusCmd)
	scooterCmd.AddCommand(scooterDeleteCmd)

	addScooterIdentityFlags(scooterAddCmd)
	addScooterStatusFlags(scooterAddCmd)
	for _, flag := range []string{"brand", "model", "serial", "top-speed", "battery"} {
		scooterAddCmd.MarkFlagRequired(flag)
	}

	addScooterIdentityFlags(scooterUpdateCmd)
	addScooterStatusFlags(scooterUpdateCmd)
	addScooterStatusFlags(scooterStatusCmd)
}

func runScooterAdd(cmd *cobra.Command, args []string) error {
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	sc := models.Scooter{
		Brand:           scooterBrand,
		Model:           scooterModel,
		SerialNumber:    scooterSerial,
		TopSpeedKMH:     scooterTopSpeed,
		BatteryWh:       scooterBattery,
		SoCPercent:      scooterSoC,
		TargetSoCMin:    scooterTargetMin,
		TargetSoCMax:    scooterTargetMax,
		Latitude:        scooterLat,
		Longitude:       scooterLon,
		OutOfService:    scooterOutOfService,
		MileageKM:       scooterMileage,
		LastMaintenance: scooterMaintenance,
	}
	id, err := svc.AddScooter(actor, &sc)
	if err != nil {
		return err
	}
	fmt.Printf("Added scooter %s %s (id %d)\n", sc.Brand, sc.Model, id)
	return nil
}

func runScooterShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	sc, err := svc.GetScooter(actor, id)
	if err != nil {
		return err
	}
	printScooter(sc)
	return nil
}

func runScooterSearch(cmd *cobra.Command, args []string) error {
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	results, err := svc.SearchScooters(actor, args[0])
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No scooters found")
		return nil
	}
	for _, sc := range results {
		state := "in service"
		if sc.OutOfService {
			state = "out of service"
		}
		fmt.Printf("%4d  %-30s  %-17s  SoC %5.1f%%  %s\n",
			sc.ID, sc.Brand+" "+sc.Model, sc.SerialNumber, sc.SoCPercent, state)
	}
	return nil
}

func runScooterUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	sc, err := svc.GetScooter(actor, id)
	if err != nil {
		return err
	}

	changed := cmd.Flags().Changed
	if changed("brand") {
		sc.Brand = scooterBrand
	}
	if changed("model") {
		sc.Model = scooterModel
	}
	if changed("serial") {
		sc.SerialNumber = scooterSerial
	}
	if changed("top-speed") {
		sc.TopSpeedKMH = scooterTopSpeed
	}
	if changed("battery") {
		sc.BatteryWh = scooterBattery
	}
	if changed("soc") {
		sc.SoCPercent = scooterSoC
	}
	if changed("target-min") {
		sc.TargetSoCMin = scooterTargetMin
	}
	if changed("target-max") {
		sc.TargetSoCMax = scooterTargetMax
	}
	if changed("lat") {
		sc.Latitude = scooterLat
	}
	if changed("lon") {
		sc.Longitude = scooterLon
	}
	if changed("out-of-service") {
		sc.OutOfService = scooterOutOfService
	}
	if changed("mileage") {
		sc.MileageKM = scooterMileage
	}
	if changed("maintained") {
		sc.LastMaintenance = scooterMaintenance
	}

	if err := svc.UpdateScooterFull(actor, sc); err != nil {
		return err
	}
	fmt.Println("Scooter updated")
	return nil
}

func runScooterStatus(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	svc, actor, err := requireActor()
	if err != nil {
		return err
	}
	defer svc.Close()

	var patch service.ScooterPatch
	changed := cmd.Flags().Changed
	if changed("soc") {
		patch.SoCPercent = &scooterSoC
	}
	if changed("target-min") {
		patch.TargetSoCMin = &scooterTargetMin
	}
	if changed("target-max") {
		patch.TargetSoCMax = &scooterTargetMax
	}
	if changed("lat") {
		patch.Latitude = &scooterLat
	}
	if changed("lon") {
		patch.Longitude = &scooterLon
	}
	if changed("out-of-service") {
		patch.OutOfService = &scooterOutOfService
	}
	if changed("mileage") {
		patch.MileageKM = &scooterMileage
	}
	if changed("maintained") {
		patch.LastMaintenance = &scooterMaintenance
	}

	if err := svc.UpdateScooterStatus(actor, id, patch); err != nil {
		return err
	}
	fmt.Println("Scooter status updated")
	return nil
}

func runScooterDelete(cmd *cobra.Command, args []string) error {
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
		fmt.Sprintf("This permanently removes scooter %d from the fleet.", id),
		"DELETE")
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Cancelled")
		return nil
	}

	if err := svc.DeleteScooter(actor, id); err != nil {
		return err
	}
	fmt.Println("Scooter removed")
	return nil
}

func printScooter(sc *models.Scooter) {
	state := "in service"
	if sc.OutOfService {
		state = "out of service"
	}
	fmt.Printf("Scooter %d\n", sc.ID)
	fmt.Printf("  Brand/Model: %s %s\n", sc.Brand, sc.Model)
	fmt.Printf("  Serial:      %s\n", sc.SerialNumber)
	fmt.Printf("  Top speed:   %d km/h\n", sc.TopSpeedKMH)
	fmt.Printf("  Battery:     %d Wh\n", sc.BatteryWh)
	fmt.Printf("  Charge:      %.1f%% (target %.0f-%.0f%%)\n", sc.SoCPercent, sc.TargetSoCMin, sc.TargetSoCMax)
	fmt.Printf("  Location:    %.5f, %.5f\n", sc.Latitude, sc.Longitude)
	fmt.Printf("  State:       %s\n", state)
	fmt.Printf("  Mileage:     %.1f km\n", sc.MileageKM)
	if sc.LastMaintenance != "" {
		fmt.Printf("  Maintained:  %s\n", sc.LastMaintenance)
	}
	fmt.Printf("  In service:  %s\n", sc.InServiceAt.Format("2006-01-02"))
}
