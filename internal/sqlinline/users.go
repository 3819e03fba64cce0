package sqlinline

const QInsertUser = `--sql f5ae3cfe-4a16-4166-81bb-6761ce07ce6b
insert into users (id, email, created_at)
values (?, ?, ?)
on conflict (email) do nothing;
`

const QSelectUserByEmail = `--sql 24db255b-31e2-4b9c-9eb1-9f90f6c7d09a
select id, email, verified_at, created_at
from users
where email = ?;
`

const QSelectUserByID = `--sql 61ed463e-b8c9-4ace-8028-e0eed8cbbd36
select id, email, verified_at, created_at
from users
where id = ?;
`

const QMarkUserVerified = `--sql 091515c7-0d73-436d-82db-f87bfa6b9172
update users
set verified_at = coalesce(verified_at, ?)
where id = ?;
`

const QListVerifiedUsers = `--sql 6fbf65fe-7297-45ff-8ffa-eb78bae3e64c
select id, email, verified_at, created_at
from users
where verified_at is not null
order by email;
`
