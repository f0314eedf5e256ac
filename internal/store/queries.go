package store

const (
	UpsertResultQuery = `
		MERGE (r:Result {task: $task, reviewer_id: $reviewer_id, case_id: $case_id})
		SET r.value = $value,
			r.comment = $comment,
			r.image_ref = $image_ref,
			r.updated_at = $updated_at
		RETURN r.case_id AS case_id
	`

	FetchReviewerResultsQuery = `
		MATCH (r:Result {task: $task, reviewer_id: $reviewer_id})
		RETURN r.task AS task, r.reviewer_id AS reviewer_id, r.case_id AS case_id,
			r.value AS value, r.comment AS comment, r.image_ref AS image_ref,
			r.updated_at AS updated_at
	`

	ListTaskResultsQuery = `
		MATCH (r:Result {task: $task})
		RETURN r.task AS task, r.reviewer_id AS reviewer_id, r.case_id AS case_id,
			r.value AS value, r.comment AS comment, r.image_ref AS image_ref,
			r.updated_at AS updated_at
		ORDER BY reviewer_id, case_id
	`

	DeleteReviewerResultsQuery = `
		MATCH (r:Result {task: $task, reviewer_id: $reviewer_id})
		DELETE r
	`

	PurgeTaskResultsQuery = `
		MATCH (r:Result {task: $task})
		DELETE r
	`
)

const accountColumns = `
		RETURN a.id AS id, a.username AS username, a.name AS name,
			a.password_hash AS password_hash, a.admin AS admin, a.disabled AS disabled,
			a.created_at AS created_at, a.last_login AS last_login
	`

const (
	ListAccountsQuery = `MATCH (a:Reviewer)` + accountColumns + `ORDER BY created_at, id`

	GetAccountQuery = `MATCH (a:Reviewer {id: $id})` + accountColumns

	GetAccountByUsernameQuery = `MATCH (a:Reviewer {username: $username})` + accountColumns

	// CreateAccountQuery returns no row when the id or username is taken.
	CreateAccountQuery = `
		OPTIONAL MATCH (x:Reviewer) WHERE x.id = $id OR x.username = $username
		WITH count(x) AS taken
		WHERE taken = 0
		CREATE (a:Reviewer {
			id: $id, username: $username, name: $name, password_hash: $password_hash,
			admin: $admin, disabled: $disabled, created_at: $created_at
		})
		RETURN a.id AS id
	`

	UsernameTakenQuery = `
		MATCH (a:Reviewer {username: $username}) WHERE a.id <> $id
		RETURN a.id AS id
	`

	UpdateAccountQuery = `
		MATCH (a:Reviewer {id: $id})
		SET a.username = $username,
			a.name = $name,
			a.password_hash = $password_hash,
			a.admin = $admin,
			a.disabled = $disabled
		RETURN a.id AS id
	`

	DeleteAccountQuery = `
		MATCH (a:Reviewer {id: $id})
		WITH a, a.id AS id
		DETACH DELETE a
		RETURN id
	`

	RecordLoginQuery = `
		MATCH (a:Reviewer {id: $id})
		SET a.last_login = $last_login
		RETURN a.id AS id
	`
)

var resultIndexQueries = []string{
	"CREATE CONSTRAINT ON (r:Result) ASSERT r.task, r.reviewer_id, r.case_id IS UNIQUE;",
	"CREATE INDEX ON :Result(task);",
	"CREATE INDEX ON :Result(reviewer_id);",
	"CREATE INDEX ON :Result(case_id);",
	"CREATE CONSTRAINT ON (a:Reviewer) ASSERT a.id IS UNIQUE;",
	"CREATE CONSTRAINT ON (a:Reviewer) ASSERT a.username IS UNIQUE;",
}
