package config

type GraphSecretData struct {
	AccessToken string `json:"accessToken"`
}

type PostgresSecretData struct {
	ConnectionString string `json:"connectionString"`
}
