/*
Package config loads entityrepo settings.

Sources are layered in increasing precedence: struct defaults, an optional
YAML file, then ENTITYREPO_* environment variables. A .env file is read into
the environment first and never overrides variables already set.

	log:
	  level: debug
	relational:
	  driver: postgres
	  host: db.internal
	  dbname: app
	tablestore:
	  connection_string: UseDevelopmentStorage=true

is equivalent to

	ENTITYREPO_LOG_LEVEL=debug
	ENTITYREPO_RELATIONAL_DRIVER=postgres
	ENTITYREPO_RELATIONAL_HOST=db.internal
	ENTITYREPO_RELATIONAL_DBNAME=app
	ENTITYREPO_TABLESTORE_CONNECTION_STRING=UseDevelopmentStorage=true
*/
package config
