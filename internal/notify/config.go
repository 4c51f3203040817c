package notify

import (
	"errors"
	"io/fs"

	"github.com/spf13/viper"
)

// LoadConfig reads the TWILIO_* and APPOINTMENT_* variables from the
// environment, falling back to envFile when it exists.
func LoadConfig(envFile string) (Config, error) {
	v := viper.New()
	v.SetDefault("TWILIO_WHATSAPP_FROM", DefaultFrom)
	v.SetDefault("TWILIO_WHATSAPP_TO", DefaultTo)
	v.AutomaticEnv()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	return Config{
		AccountSID:       v.GetString("TWILIO_ACCOUNT_SID"),
		AuthToken:        v.GetString("TWILIO_AUTH_TOKEN"),
		From:             v.GetString("TWILIO_WHATSAPP_FROM"),
		To:               v.GetString("TWILIO_WHATSAPP_TO"),
		ContentSID:       v.GetString("TWILIO_CONTENT_SID"),
		ContentVariables: v.GetString("TWILIO_CONTENT_VARIABLES"),
		Appointment: Appointment{
			Name:  v.GetString("APPOINTMENT_NAME"),
			Date:  v.GetString("APPOINTMENT_DATE"),
			Time:  v.GetString("APPOINTMENT_TIME"),
			Phone: v.GetString("APPOINTMENT_PHONE"),
		},
	}, nil
}
