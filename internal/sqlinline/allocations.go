package sqlinline

const QUpsertAllocation = `--sql f90f38a7-bcba-49a3-867c-8783a6906a4c
insert into allocations (user_id, project_id, amount, updated_at)
values (?, ?, ?, ?)
on conflict (user_id, project_id) do update set
    amount = excluded.amount,
    updated_at = excluded.updated_at;
`

const QListAllocationsByUser = `--sql f454e456-7fc4-462b-a6c2-a636b5600b6d
select project_id, amount
from allocations
where user_id = ?
order by project_id;
`

const QSumAllocationsExcluding = `--sql 4e780958-4ee8-4b27-8508-51b4024896dc
select coalesce(sum(amount), 0)
from allocations
where user_id = ? and project_id <> ?;
`

const QAllocationsByCategory = `--sql e8c843cc-1d8e-4124-b560-c062757c5788
select p.category as category,
       coalesce(sum(a.amount), 0) as amount,
       sum(case when a.amount > 0 then 1 else 0 end) as projects
from allocations a
join projects p on p.project_id = a.project_id
where a.user_id = ?
group by p.category
order by p.category;
`

const QExportAllocations = `--sql 72ed3886-0bab-4b87-b7aa-a3d23dcacf30
select a.project_id, p.name, p.category, p.status, a.amount
from allocations a
join projects p on p.project_id = a.project_id
where a.user_id = ?
order by a.project_id;
`
