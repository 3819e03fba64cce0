package sqlinline

// QUpsertProject also stores the lower-cased name and description that
// project search matches against.
const QUpsertProject = `--sql 11f9d85a-4ac6-406c-97ec-5849097bd76a
insert into projects (project_id, name, description, category, status, search_name, search_description)
values (?, ?, ?, ?, ?, ?, ?)
on conflict (project_id) do update set
    name = excluded.name,
    description = excluded.description,
    category = excluded.category,
    status = excluded.status,
    search_name = excluded.search_name,
    search_description = excluded.search_description;
`

const QSelectProjectByID = `--sql 12c0f120-16d0-45ca-a4b3-c9b53138ca54
select project_id, name, description, category, status
from projects
where project_id = ?;
`

// QListProjects is extended with a where clause and ordering by the repository.
const QListProjects = `--sql b4bf54de-a2cf-42b0-9d6e-82a95d9399da
select project_id, name, description, category, status
from projects
`

const QCountProjects = `--sql 66f2bf87-0c91-44b7-a7b0-739adc4b6f6c
select count(*) from projects;
`

const QListCategories = `--sql b1e8e3ab-4f67-4f22-973c-fe442572c01d
select distinct category
from projects
where category <> ''
order by category;
`

const QListStatuses = `--sql 0ad7a80e-188c-4678-a314-a1a827718650
select distinct status
from projects
where status <> ''
order by status;
`
